package statecore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderFlatMachine(t *testing.T) {
	b := NewBuilder("light")
	b.Initial("red")
	b.State("red").On("Next", "green")
	b.State("green").On("Next", "yellow")
	b.State("yellow").On("Next", "red")

	m, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, StateId("red"), m.Initial())
	require.Len(t, m.States(), 3)
}

func TestBuilderDefaultsInitialToFirstDeclaredState(t *testing.T) {
	b := NewBuilder("m")
	b.State("a")
	b.State("b")
	m, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, StateId("a"), m.Initial())
}

func TestBuilderMissingTargetIsConfigError(t *testing.T) {
	b := NewBuilder("m")
	b.Initial("a")
	b.State("a").On("go", "nowhere")

	_, err := b.Build()
	require.Error(t, err)
	cfgErr, ok := err.(*ConfigError)
	require.True(t, ok, "expected *ConfigError, got %T", err)
	require.Len(t, cfgErr.MissingTargets, 1)
}

func TestBuilderCompoundStateRequiresInitialChild(t *testing.T) {
	b := NewBuilder("m")
	b.Initial("parent")
	b.State("parent")
	b.State("parent.child")

	_, err := b.Build()
	require.Error(t, err)
	cfgErr, ok := err.(*ConfigError)
	require.True(t, ok, "expected *ConfigError, got %T", err)
	require.Len(t, cfgErr.Unresolved, 1)
}

func TestBuilderHierarchyWiring(t *testing.T) {
	b := NewBuilder("m")
	b.Initial("parent")
	b.State("parent").InitialChild("parent.child")
	b.State("parent.child")

	m, err := b.Build()
	require.NoError(t, err)

	parent, ok := m.State("parent")
	require.True(t, ok, "expected parent state to exist")
	require.True(t, parent.IsCompound())

	child, ok := m.State("parent.child")
	require.True(t, ok, "expected child state to exist")
	require.Equal(t, StateId("parent"), child.Parent)

	initial := m.InitialState(nil)
	require.Equal(t, StateId("parent.child"), initial.Value.Leaf())
}

func TestBuilderReportsAllViolationsAtOnce(t *testing.T) {
	b := NewBuilder("m")
	b.Initial("missing-initial")
	b.State("a").On("go", "nowhere")

	_, err := b.Build()
	cfgErr, ok := err.(*ConfigError)
	require.True(t, ok, "expected *ConfigError, got %T", err)
	require.NotEmpty(t, cfgErr.InvalidInitial, "expected InvalidInitial to be set")
	require.NotEmpty(t, cfgErr.MissingTargets, "expected MissingTargets to be set alongside InvalidInitial")
}

func TestNewBuilderGeneratesIdWhenEmpty(t *testing.T) {
	b := NewBuilder("")
	require.NotEmpty(t, b.id, "expected NewBuilder(\"\") to generate a non-empty machine id")
}

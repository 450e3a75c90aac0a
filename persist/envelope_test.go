package persist

import (
	"testing"

	"github.com/fluxorio/statecore"
)

type counterContext struct {
	Count int
	Tags  []string
}

func TestEncodeDecodeRoundTripUncompressed(t *testing.T) {
	s := statecore.MachineState{Value: statecore.Simple("idle"), Context: &counterContext{Count: 3, Tags: []string{"a"}}}
	meta := Metadata{Name: "counter", Version: "1"}

	data, err := encode("m1", s, meta, 0)
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	var got counterContext
	id, value, gotMeta, err := decode(data, &got)
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	if id != "m1" {
		t.Errorf("machine id = %q, want m1", id)
	}
	if !value.Equal(s.Value) {
		t.Errorf("value = %v, want %v", value, s.Value)
	}
	if got.Count != 3 || len(got.Tags) != 1 || got.Tags[0] != "a" {
		t.Errorf("context = %+v, want Count=3 Tags=[a]", got)
	}
	if gotMeta.Name != "counter" {
		t.Errorf("metadata.Name = %q, want counter", gotMeta.Name)
	}
}

func TestEncodeDecodeRoundTripCompressed(t *testing.T) {
	s := statecore.MachineState{Value: statecore.Compound("playing", statecore.Simple("level1")), Context: &counterContext{Count: 42}}

	data, err := encode("m2", s, Metadata{}, 5)
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	var got counterContext
	_, value, _, err := decode(data, &got)
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	if got.Count != 42 {
		t.Errorf("Count = %d, want 42", got.Count)
	}
	if value.Leaf() != "level1" {
		t.Errorf("Leaf() = %q, want level1", value.Leaf())
	}
}

func TestDecodeRejectsWrongFormatVersion(t *testing.T) {
	s := statecore.MachineState{Value: statecore.Simple("idle"), Context: &counterContext{}}
	data, err := encode("m1", s, Metadata{}, 0)
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	// Corrupt the format_version field in place.
	corrupted := []byte(replaceFormatVersion(string(data)))

	var got counterContext
	_, _, _, err = decode(corrupted, &got)
	if err == nil {
		t.Fatal("expected a version error")
	}
	persistErr, ok := err.(*Error)
	if !ok || persistErr.Kind != KindVersion {
		t.Fatalf("expected KindVersion, got %#v", err)
	}
}

func replaceFormatVersion(s string) string {
	old := `"format_version":1`
	new := `"format_version":99`
	out := make([]byte, 0, len(s))
	i := 0
	for i < len(s) {
		if i+len(old) <= len(s) && s[i:i+len(old)] == old {
			out = append(out, new...)
			i += len(old)
			continue
		}
		out = append(out, s[i])
		i++
	}
	return string(out)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	var got counterContext
	_, _, _, err := decode([]byte("not json"), &got)
	if err == nil {
		t.Fatal("expected a deserialization error")
	}
	persistErr, ok := err.(*Error)
	if !ok || persistErr.Kind != KindDeserialization {
		t.Fatalf("expected KindDeserialization, got %#v", err)
	}
}

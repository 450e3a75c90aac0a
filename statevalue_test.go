package statecore

import (
	"encoding/json"
	"testing"
)

func TestStateValueLeafAndPath(t *testing.T) {
	v := Compound("playing", Compound("level1", Simple("boss")))

	if got := v.Leaf(); got != "boss" {
		t.Errorf("Leaf() = %q, want %q", got, "boss")
	}
	want := []StateId{"playing", "level1", "boss"}
	path := v.Path()
	if len(path) != len(want) {
		t.Fatalf("Path() length = %d, want %d", len(path), len(want))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("Path()[%d] = %q, want %q", i, path[i], want[i])
		}
	}
}

func TestStateValueEqual(t *testing.T) {
	a := Compound("x", Simple("y"))
	b := Compound("x", Simple("y"))
	c := Compound("x", Simple("z"))

	if !a.Equal(b) {
		t.Error("expected equal compound values to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing compound values to compare unequal")
	}
	if Simple("x").Equal(a) {
		t.Error("expected Simple and Compound values to compare unequal")
	}
}

func TestStateValueJSONRoundTrip(t *testing.T) {
	cases := []StateValue{
		Simple("idle"),
		Compound("playing", Simple("level1")),
		Compound("playing", Compound("level1", Simple("boss"))),
	}
	for _, want := range cases {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", want, err)
		}
		var got StateValue
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip mismatch: got %v, want %v (json: %s)", got, want, data)
		}
	}
}

func TestStateValueSimpleJSONShape(t *testing.T) {
	data, err := json.Marshal(Simple("idle"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"idle"` {
		t.Errorf("Simple JSON = %s, want %q", data, `"idle"`)
	}
}

func TestStateValueCompoundJSONShape(t *testing.T) {
	data, err := json.Marshal(Compound("playing", Simple("level1")))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected compound shape {\"playing\": \"level1\"}, got %s: %v", data, err)
	}
	if decoded["playing"] != "level1" {
		t.Errorf("decoded = %v, want playing:level1", decoded)
	}
}

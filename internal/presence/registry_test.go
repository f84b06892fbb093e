package presence

import (
	"slices"
	"testing"
)

func TestRegistryBroadcastsOnChange(t *testing.T) {
	var counts []int
	r := NewRegistry(func(n int) { counts = append(counts, n) })

	r.Add("a")
	r.Add("b")
	r.Add("a") // already present
	r.Remove("c")
	r.Remove("a")

	if want := []int{1, 2, 1}; !slices.Equal(counts, want) {
		t.Fatalf("broadcast counts = %v, want %v", counts, want)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryNilBroadcast(t *testing.T) {
	r := NewRegistry(nil)
	if n := r.Add("a"); n != 1 {
		t.Fatalf("Add = %d, want 1", n)
	}
	if n := r.Remove("a"); n != 0 {
		t.Fatalf("Remove = %d, want 0", n)
	}
}

package ids

import (
	"regexp"
	"testing"
)

func TestRandom_Shape(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]+$`)
	for range 50 {
		id := Random()
		if !re.MatchString(id) {
			t.Fatalf("unexpected id %q", id)
		}
	}
}

func TestNext_SkipsExisting(t *testing.T) {
	g := New(Sequence("a", "a", "b", "c"))
	existing := map[string]struct{}{"a": {}}

	if got := g.Next(existing); got != "b" {
		t.Fatalf("Next = %q, want b", got)
	}
	if _, ok := existing["b"]; !ok {
		t.Fatal("generated id not recorded in the running set")
	}
	if got := g.Next(existing); got != "c" {
		t.Fatalf("Next = %q, want c", got)
	}
}

func TestNext_ManyUnique(t *testing.T) {
	g := New(nil)
	existing := map[string]struct{}{}
	for range 1000 {
		g.Next(existing)
	}
	if len(existing) != 1000 {
		t.Fatalf("got %d distinct ids, want 1000", len(existing))
	}
}

func TestNext_PanicsOnExhaustedSource(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(Sequence("x")).Next(map[string]struct{}{"x": {}})
}

package matchmaking

import (
	"slices"
	"testing"
	"time"

	"github.com/1ureka/whodis/internal/protocol"
)

// tickingClock returns a clock that advances one second per call so that
// arrival order is visible in EnqueuedAt.
func tickingClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func interests(tags ...string) protocol.Criteria {
	return protocol.Criteria{Interests: tags}
}

func TestJoinEmptyPoolEnqueues(t *testing.T) {
	p := NewPool(tickingClock())
	if _, matched := p.Join("a", interests("music")); matched {
		t.Fatal("Join on empty pool matched")
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
}

func TestJoinPicksHighestOverlap(t *testing.T) {
	p := NewPool(tickingClock())
	seed(p, "low", "music")
	seed(p, "high", "music", "art", "film")
	seed(p, "mid", "art", "film")

	partner, matched := p.Join("x", interests("Music", "ART", "film"))
	if !matched || partner.ConnID != "high" {
		t.Fatalf("Join matched %q (%v), want high", partner.ConnID, matched)
	}
	if got := p.Waiting(); !slices.Equal(got, []string{"low", "mid"}) {
		t.Errorf("Waiting() = %v, want [low mid]", got)
	}
}

func TestJoinTieGoesToEarliest(t *testing.T) {
	p := NewPool(tickingClock())
	seed(p, "first", "art")
	seed(p, "second", "art")

	partner, matched := p.Join("x", interests("art"))
	if !matched || partner.ConnID != "first" {
		t.Fatalf("Join matched %q, want first", partner.ConnID)
	}
}

func TestJoinZeroOverlapStillPairsOldest(t *testing.T) {
	p := NewPool(tickingClock())
	seed(p, "old", "chess")
	seed(p, "new", "golf")

	partner, matched := p.Join("x", interests("music"))
	if !matched || partner.ConnID != "old" {
		t.Fatalf("Join matched %q (%v), want old", partner.ConnID, matched)
	}
}

// TestJoinScenario walks entries A{music,art}, B{art,film}, C{} joining in
// order: B pairs with A, leaving the pool empty, so C is enqueued.
func TestJoinScenario(t *testing.T) {
	p := NewPool(tickingClock())

	if _, matched := p.Join("A", interests("music", "art")); matched {
		t.Fatal("A matched on an empty pool")
	}
	partner, matched := p.Join("B", interests("art", "film"))
	if !matched || partner.ConnID != "A" {
		t.Fatalf("B matched %q (%v), want A", partner.ConnID, matched)
	}
	if _, matched := p.Join("C", interests()); matched {
		t.Fatal("C matched, want enqueued")
	}
	if got := p.Waiting(); !slices.Equal(got, []string{"C"}) {
		t.Errorf("Waiting() = %v, want [C]", got)
	}
}

func TestJoinNeverMatchesSelf(t *testing.T) {
	p := NewPool(tickingClock())
	p.Join("a", interests("music"))
	if _, matched := p.Join("a", interests("music")); matched {
		t.Fatal("re-join matched itself")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d after re-join, want 1", p.Len())
	}
}

// TestRejoinIsIdempotent checks join(x), leave(x), join(x) pairs exactly as
// if the first join never happened.
func TestRejoinIsIdempotent(t *testing.T) {
	fresh := NewPool(tickingClock())
	seed(fresh, "w1", "art")
	seed(fresh, "w2", "film")
	want, _ := fresh.Join("x", interests("film"))

	churned := NewPool(tickingClock())
	churned.Join("x", interests("film"))
	churned.Leave("x")
	seed(churned, "w1", "art")
	seed(churned, "w2", "film")
	got, matched := churned.Join("x", interests("film"))

	if !matched || got.ConnID != want.ConnID {
		t.Fatalf("rejoin matched %q (%v), want %q", got.ConnID, matched, want.ConnID)
	}
	if churned.Len() != fresh.Len() {
		t.Errorf("Len() = %d, want %d", churned.Len(), fresh.Len())
	}
}

func TestLeaveAbsent(t *testing.T) {
	p := NewPool(nil)
	if p.Leave("ghost") {
		t.Fatal("Leave(ghost) reported an entry")
	}
}

func TestOverlapCaseInsensitive(t *testing.T) {
	a := Tags([]string{"Music", " art ", ""})
	b := Tags([]string{"ART", "music", "film"})
	if got := Overlap(a, b); got != 2 {
		t.Fatalf("Overlap = %d, want 2", got)
	}
}

// seed enqueues without running the match search.
func seed(p *Pool, id string, tags ...string) {
	p.entries = append(p.entries, newEntry(id, interests(tags...), p.now()))
}

// Package matchmaking holds the pool of clients waiting for a partner and
// the best-match search run when a new client joins.
package matchmaking

import (
	"slices"
	"time"

	"github.com/1ureka/whodis/internal/protocol"
)

// Entry is one waiting client.
type Entry struct {
	ConnID     string
	Criteria   protocol.Criteria
	EnqueuedAt time.Time

	tags map[string]struct{}
}

// Pool is an arrival-ordered list of waiting clients. It is not safe for
// concurrent use: the check-then-mutate sequence in Join is only atomic
// because the signaling hub calls it from one goroutine.
type Pool struct {
	entries []*Entry
	now     func() time.Time
}

// NewPool creates an empty pool. now stamps EnqueuedAt; nil means time.Now.
func NewPool(now func() time.Time) *Pool {
	if now == nil {
		now = time.Now
	}
	return &Pool{now: now}
}

// Join enters connID into matchmaking. Any earlier entry for connID is
// dropped first, so retries and reconnects never leave duplicates.
//
// If another client is waiting, the best candidate is removed from the pool
// and returned with matched == true; the caller opens the room. Otherwise
// connID is enqueued.
func (p *Pool) Join(connID string, criteria protocol.Criteria) (partner Entry, matched bool) {
	p.Leave(connID)

	joining := newEntry(connID, criteria, p.now())
	if i := p.bestMatch(joining); i >= 0 {
		found := p.entries[i]
		p.entries = slices.Delete(p.entries, i, i+1)
		return *found, true
	}

	p.entries = append(p.entries, joining)
	return Entry{}, false
}

// Leave removes connID from the pool. It reports whether an entry existed.
func (p *Pool) Leave(connID string) bool {
	for i, e := range p.entries {
		if e.ConnID == connID {
			p.entries = slices.Delete(p.entries, i, i+1)
			return true
		}
	}
	return false
}

// Len returns the number of waiting clients.
func (p *Pool) Len() int { return len(p.entries) }

// Waiting returns the connection ids in arrival order.
func (p *Pool) Waiting() []string {
	ids := make([]string, len(p.entries))
	for i, e := range p.entries {
		ids[i] = e.ConnID
	}
	return ids
}

// bestMatch returns the index of the candidate with the strictly highest
// overlap, or -1 if there is none. Scanning in arrival order with a strict
// comparison makes the oldest entry win every tie, including the all-zero
// case: zero overlap is still a match.
func (p *Pool) bestMatch(joining *Entry) int {
	best, bestScore := -1, -1
	for i, candidate := range p.entries {
		if candidate.ConnID == joining.ConnID {
			continue
		}
		if score := Overlap(joining.tags, candidate.tags); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

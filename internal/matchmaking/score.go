package matchmaking

import (
	"strings"
	"time"

	"github.com/1ureka/whodis/internal/protocol"
)

func newEntry(connID string, criteria protocol.Criteria, now time.Time) *Entry {
	return &Entry{
		ConnID:     connID,
		Criteria:   criteria,
		EnqueuedAt: now,
		tags:       Tags(criteria.Interests),
	}
}

// Tags normalizes interest tags into a set: trimmed, lower-cased, blanks
// dropped.
func Tags(interests []string) map[string]struct{} {
	set := make(map[string]struct{}, len(interests))
	for _, tag := range interests {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set[tag] = struct{}{}
		}
	}
	return set
}

// Overlap counts the tags present in both sets.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tag := range a {
		if _, ok := b[tag]; ok {
			n++
		}
	}
	return n
}

package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide signaling counter set.
var Stats = &stats{}

type stats struct {
	Online  atomic.Int64 // currently connected clients
	Waiting atomic.Int64 // clients currently in the matchmaking pool
	Matches atomic.Int64 // cumulative rooms opened since process start
	Relayed atomic.Int64 // cumulative envelopes forwarded between room members
	Dropped atomic.Int64 // cumulative envelopes dropped (unknown room, rate limit, full buffer)
}

func (s *stats) SetOnline(n int)  { s.Online.Store(int64(n)) }
func (s *stats) SetWaiting(n int) { s.Waiting.Store(int64(n)) }
func (s *stats) AddMatch()        { s.Matches.Add(1) }
func (s *stats) AddRelayed()      { s.Relayed.Add(1) }
func (s *stats) AddDropped()      { s.Dropped.Add(1) }

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Online, Waiting, Matches, Relayed, Dropped int64
}

// Snapshot copies the current counters.
func (s *stats) Snapshot() Snapshot {
	return Snapshot{
		Online:  s.Online.Load(),
		Waiting: s.Waiting.Load(),
		Matches: s.Matches.Load(),
		Relayed: s.Relayed.Load(),
		Dropped: s.Dropped.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs signaling statistics
// every interval, skipping quiet periods. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := Stats.Snapshot()
		for {
			select {
			case <-ticker.C:
				cur := Stats.Snapshot()
				if cur != prev {
					pterm.DefaultLogger.Info(formatStats(prev, cur, interval))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats renders the gauges and the per-second rate of the counters
// between two snapshots.
func formatStats(prev, cur Snapshot, interval time.Duration) string {
	secs := interval.Seconds()
	return fmt.Sprintf("Online: %3d | Waiting: %3d | Matches: %+d | Relay: %5.1f/s | Drop: %5.1f/s",
		cur.Online,
		cur.Waiting,
		cur.Matches-prev.Matches,
		float64(cur.Relayed-prev.Relayed)/secs,
		float64(cur.Dropped-prev.Dropped)/secs,
	)
}

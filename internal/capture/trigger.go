// Package capture runs a periodic side effect while a session is connected.
package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1ureka/whodis/internal/session"
	"github.com/1ureka/whodis/internal/util"
)

// Trigger calls fn every interval between Start and Stop. A call still
// running when the next tick comes makes that tick a no-op.
type Trigger struct {
	parent   context.Context
	interval time.Duration
	fn       func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	busy  atomic.Bool
	fired atomic.Int64
}

// NewTrigger creates a stopped trigger. fn receives a context cancelled on
// Stop. A non-positive interval makes the trigger inert.
func NewTrigger(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) *Trigger {
	return &Trigger{parent: ctx, interval: interval, fn: fn}
}

// OnState starts the trigger on Connected and stops it otherwise. It fits
// session.Hooks.OnState.
func (t *Trigger) OnState(state session.State) {
	if state == session.Connected {
		t.Start()
	} else {
		t.Stop()
	}
}

// Start begins ticking. Starting a running trigger does nothing.
func (t *Trigger) Start() {
	if t.interval <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(t.parent)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.loop(ctx, t.done)
}

// Stop halts ticking and waits for the loop to exit. A call to fn already
// in flight keeps running with a cancelled context.
func (t *Trigger) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Fired returns how many times fn was started.
func (t *Trigger) Fired() int64 { return t.fired.Load() }

func (t *Trigger) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.busy.CompareAndSwap(false, true) {
				util.LogDebug("capture still running, tick skipped")
				continue
			}
			t.fired.Add(1)
			go func() {
				defer t.busy.Store(false)
				t.fn(ctx)
			}()
		}
	}
}

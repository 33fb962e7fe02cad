package session

import (
	"sync/atomic"
	"time"
)

// PhaseTimer is a restartable one-second-resolution countdown owned by a
// phase controller. Start begins a new countdown and implicitly cancels any
// previous one; Cancel stops the active countdown and guarantees no further
// onTick/onExpire callbacks fire, even for ticks already scheduled.
//
// The tick interval is injectable so tests can run countdowns in milliseconds.
type PhaseTimer struct {
	interval time.Duration
	gen      atomic.Int64
}

// NewPhaseTimer creates a timer with the given tick interval. An interval of
// zero or less defaults to one second.
func NewPhaseTimer(interval time.Duration) *PhaseTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &PhaseTimer{interval: interval}
}

// Start begins a countdown of durationTicks intervals. onTick receives the
// remaining tick count after every interval; onExpire fires exactly once when
// the countdown reaches zero, after which the timer stops on its own.
// A non-positive duration expires on the first tick.
func (t *PhaseTimer) Start(durationTicks int, onTick func(remaining int), onExpire func()) {
	gen := t.gen.Add(1)

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		remaining := durationTicks
		for range ticker.C {
			// A newer generation means Cancel or a fresh Start happened;
			// this countdown must go silent immediately.
			if t.gen.Load() != gen {
				return
			}

			remaining--
			if remaining > 0 {
				if onTick != nil {
					onTick(remaining)
				}
				continue
			}

			if t.gen.Load() != gen {
				return
			}
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}()
}

// Cancel stops the active countdown. Safe to call multiple times and from
// timer callbacks.
func (t *PhaseTimer) Cancel() {
	t.gen.Add(1)
}

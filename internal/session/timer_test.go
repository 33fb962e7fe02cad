package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerExpiresExactlyOnce(t *testing.T) {
	timer := NewPhaseTimer(2 * time.Millisecond)

	var ticks, expires atomic.Int64
	done := make(chan struct{})

	timer.Start(3,
		func(remaining int) { ticks.Add(1) },
		func() {
			expires.Add(1)
			close(done)
		},
	)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never expired")
	}

	// Give any stray goroutine a chance to misbehave.
	time.Sleep(30 * time.Millisecond)

	if got := expires.Load(); got != 1 {
		t.Fatalf("expected exactly one expire, got %d", got)
	}
	if got := ticks.Load(); got != 2 {
		t.Fatalf("expected 2 ticks for a 3-tick countdown, got %d", got)
	}
}

func TestTimerCancelSilencesCallbacks(t *testing.T) {
	timer := NewPhaseTimer(5 * time.Millisecond)

	var ticks, expires atomic.Int64
	timer.Start(5,
		func(remaining int) { ticks.Add(1) },
		func() { expires.Add(1) },
	)

	// Cancel partway through, then wait out well past the full duration.
	time.Sleep(12 * time.Millisecond)
	timer.Cancel()
	after := ticks.Load()

	time.Sleep(60 * time.Millisecond)

	if expires.Load() != 0 {
		t.Fatal("expire fired after cancel")
	}
	if got := ticks.Load(); got != after {
		t.Fatalf("ticks continued after cancel: %d -> %d", after, got)
	}
}

func TestTimerRestartSupersedesPreviousCountdown(t *testing.T) {
	timer := NewPhaseTimer(3 * time.Millisecond)

	var firstExpires, secondExpires atomic.Int64
	second := make(chan struct{})

	timer.Start(100, nil, func() { firstExpires.Add(1) })
	timer.Start(2, nil, func() {
		secondExpires.Add(1)
		close(second)
	})

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("restarted timer never expired")
	}

	time.Sleep(20 * time.Millisecond)

	if firstExpires.Load() != 0 {
		t.Fatal("superseded countdown still expired")
	}
	if secondExpires.Load() != 1 {
		t.Fatalf("expected one expire from restarted countdown, got %d", secondExpires.Load())
	}
}

func TestTimerCancelIsIdempotent(t *testing.T) {
	timer := NewPhaseTimer(time.Millisecond)
	timer.Start(10, nil, nil)
	timer.Cancel()
	timer.Cancel()
	timer.Cancel()
}

package session

import (
	"sync"
	"time"
)

// Signal is an environment-integrity event reported by the participant's
// browser over the session stream.
type Signal string

const (
	// Violations — scored, count toward auto-submit.
	SignalTabHidden  Signal = "tab_hidden"
	SignalWindowBlur Signal = "window_blur"

	// Deterrents — suppressed client-side, reported but never scored.
	SignalContextMenu Signal = "context_menu"
	SignalClipboard   Signal = "clipboard"
	SignalDevtools    Signal = "devtools"
	SignalDragDrop    Signal = "drag_drop"
)

// IsViolation reports whether the signal counts toward the warning threshold.
func (s Signal) IsViolation() bool {
	return s == SignalTabHidden || s == SignalWindowBlur
}

// MonitorCallbacks is the contract the monitor exposes upward to its host.
type MonitorCallbacks struct {
	// OnWarning fires once per discrete violation with the running count.
	OnWarning func(count, max int)
	// OnDeterrent fires for suppressed UI deterrent events.
	OnDeterrent func(sig Signal)
	// OnAutoSubmit fires exactly once when the warning count reaches the
	// threshold. The monitor disables itself afterwards.
	OnAutoSubmit func()
	// OnEventEnded fires exactly once when the hard event deadline passes.
	OnEventEnded func()
}

// Monitor counts proctoring violations for one session and escalates to a
// forced submission at the configured threshold. It also tracks the hard
// event deadline: once that passes, all further warnings and auto-submits
// are suppressed.
type Monitor struct {
	mu          sync.Mutex
	maxWarnings int
	deadline    time.Time
	now         func() time.Time
	cb          MonitorCallbacks

	warnings int
	active   bool
	fired    bool // auto-submit already dispatched; terminal
	ended    bool // event deadline passed; terminal
}

// NewMonitor creates an inactive monitor. A zero deadline disables the hard
// deadline check. Call Activate before reporting signals.
func NewMonitor(maxWarnings int, deadline time.Time, cb MonitorCallbacks) *Monitor {
	if maxWarnings <= 0 {
		maxWarnings = 2
	}
	return &Monitor{
		maxWarnings: maxWarnings,
		deadline:    deadline,
		now:         time.Now,
		cb:          cb,
	}
}

// Activate arms the monitor for a phase. No-op once the monitor has fired an
// auto-submit or the event has ended: a fired monitor stays disabled for the
// rest of the session.
func (m *Monitor) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fired || m.ended {
		return
	}
	m.active = true
}

// Deactivate disarms the monitor. Idempotent; called on phase exit and on
// session disposal regardless of exit path.
func (m *Monitor) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// Restore seeds the warning counter from persisted state when a session is
// rebuilt after a restart. A count at or past the threshold marks the monitor
// fired so the rebuilt session cannot trigger a second auto-submit.
func (m *Monitor) Restore(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = count
	if count >= m.maxWarnings {
		m.fired = true
		m.active = false
	}
}

// Warnings returns the current violation count.
func (m *Monitor) Warnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings
}

// Report processes one discrete signal. Each violation signal increments the
// warning counter exactly once; deterrent signals are forwarded unscored.
// Signals reported while inactive, after auto-submit, or after the event
// deadline are no-ops (beyond the single OnEventEnded dispatch).
func (m *Monitor) Report(sig Signal) {
	m.mu.Lock()

	if !m.active {
		m.mu.Unlock()
		return
	}

	// Hard event deadline beats everything else.
	if !m.deadline.IsZero() && !m.now().Before(m.deadline) {
		if m.ended {
			m.mu.Unlock()
			return
		}
		m.ended = true
		m.active = false
		ended := m.cb.OnEventEnded
		m.mu.Unlock()
		if ended != nil {
			ended()
		}
		return
	}

	if !sig.IsViolation() {
		deterrent := m.cb.OnDeterrent
		m.mu.Unlock()
		if deterrent != nil {
			deterrent(sig)
		}
		return
	}

	m.warnings++
	count := m.warnings
	warn := m.cb.OnWarning

	var autoSubmit func()
	if count >= m.maxWarnings && !m.fired {
		m.fired = true
		m.active = false
		autoSubmit = m.cb.OnAutoSubmit
	}
	m.mu.Unlock()

	if warn != nil {
		warn(count, m.maxWarnings)
	}
	if autoSubmit != nil {
		autoSubmit()
	}
}

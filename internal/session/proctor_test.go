package session

import (
	"testing"
	"time"
)

type monitorRecorder struct {
	warnings    []int
	deterrents  []Signal
	autoSubmits int
	ended       int
}

func (r *monitorRecorder) callbacks() MonitorCallbacks {
	return MonitorCallbacks{
		OnWarning:    func(count, max int) { r.warnings = append(r.warnings, count) },
		OnDeterrent:  func(sig Signal) { r.deterrents = append(r.deterrents, sig) },
		OnAutoSubmit: func() { r.autoSubmits++ },
		OnEventEnded: func() { r.ended++ },
	}
}

func TestMonitorCountsOneWarningPerViolation(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(5, time.Time{}, rec.callbacks())
	m.Activate()

	m.Report(SignalTabHidden)

	if m.Warnings() != 1 {
		t.Fatalf("expected warning count 1, got %d", m.Warnings())
	}
	if len(rec.warnings) != 1 || rec.warnings[0] != 1 {
		t.Fatalf("expected one OnWarning(1), got %v", rec.warnings)
	}

	m.Report(SignalWindowBlur)
	if m.Warnings() != 2 {
		t.Fatalf("expected warning count 2, got %d", m.Warnings())
	}
}

func TestMonitorAutoSubmitFiresExactlyOnce(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(2, time.Time{}, rec.callbacks())
	m.Activate()

	// Drive to max+2 violations.
	m.Report(SignalTabHidden)
	m.Report(SignalWindowBlur)
	m.Report(SignalTabHidden)
	m.Report(SignalTabHidden)

	if rec.autoSubmits != 1 {
		t.Fatalf("expected exactly one auto-submit, got %d", rec.autoSubmits)
	}
	// Violations after auto-submit are no-ops: the monitor disabled itself.
	if m.Warnings() != 2 {
		t.Fatalf("expected warnings frozen at 2, got %d", m.Warnings())
	}
}

func TestMonitorStaysDisabledAfterAutoSubmit(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(1, time.Time{}, rec.callbacks())
	m.Activate()

	m.Report(SignalTabHidden)
	if rec.autoSubmits != 1 {
		t.Fatalf("expected auto-submit, got %d", rec.autoSubmits)
	}

	// Re-arming for the next phase must not resurrect a fired monitor.
	m.Activate()
	m.Report(SignalTabHidden)
	m.Report(SignalWindowBlur)

	if rec.autoSubmits != 1 {
		t.Fatalf("auto-submit fired again after re-arm: %d", rec.autoSubmits)
	}
	if m.Warnings() != 1 {
		t.Fatalf("warnings counted after terminal fire: %d", m.Warnings())
	}
}

func TestMonitorDeterrentsAreNotScored(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(2, time.Time{}, rec.callbacks())
	m.Activate()

	m.Report(SignalContextMenu)
	m.Report(SignalClipboard)
	m.Report(SignalDevtools)
	m.Report(SignalDragDrop)

	if m.Warnings() != 0 {
		t.Fatalf("deterrents must not count as warnings, got %d", m.Warnings())
	}
	if rec.autoSubmits != 0 {
		t.Fatal("deterrents triggered auto-submit")
	}
	if len(rec.deterrents) != 4 {
		t.Fatalf("expected 4 deterrent reports, got %d", len(rec.deterrents))
	}
}

func TestMonitorEventDeadlineSuppressesEverything(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(2, time.Now().Add(time.Hour), rec.callbacks())
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) } // past deadline
	m.Activate()

	m.Report(SignalTabHidden)
	if rec.ended != 1 {
		t.Fatalf("expected one OnEventEnded, got %d", rec.ended)
	}
	if len(rec.warnings) != 0 || rec.autoSubmits != 0 {
		t.Fatal("signals past the event deadline must not warn or auto-submit")
	}

	// Further reports after the ended flag are no-ops.
	m.Report(SignalWindowBlur)
	m.Report(SignalTabHidden)
	if rec.ended != 1 {
		t.Fatalf("OnEventEnded fired more than once: %d", rec.ended)
	}
}

func TestMonitorInactiveIgnoresSignals(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(2, time.Time{}, rec.callbacks())

	m.Report(SignalTabHidden) // never activated

	m.Activate()
	m.Report(SignalTabHidden)
	m.Deactivate()
	m.Report(SignalWindowBlur)

	if m.Warnings() != 1 {
		t.Fatalf("expected 1 warning while active, got %d", m.Warnings())
	}
}

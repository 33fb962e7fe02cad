package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer" // select/replace one quiz answer
	ActionCode   Action = "code"   // autosave the coding draft
	ActionSignal Action = "signal" // proctoring signal report
	ActionSubmit Action = "submit" // close the current phase
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest selects an option for one quiz question.
type AnswerRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// CodeRequest autosaves the participant's coding draft.
type CodeRequest struct {
	Action   Action `json:"action"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// SignalRequest reports a proctoring signal from the browser.
type SignalRequest struct {
	Action Action `json:"action"`
	Signal string `json:"signal"`
}

// SubmitRequest closes and grades the phase the session is currently in.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSaved      Event = "saved"
	EventTick       Event = "tick"
	EventWarning    Event = "warning"
	EventDeterrent  Event = "deterrent"
	EventPhase      Event = "phase"
	EventGraded     Event = "graded"
	EventEventEnded Event = "event_ended"
	EventPong       Event = "pong"
)

// SavedResponse acknowledges an autosave.
type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// TickResponse carries the phase countdown, one per second.
type TickResponse struct {
	Event            Event  `json:"event"`
	Phase            string `json:"phase"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// WarningResponse notifies the participant of a scored proctoring violation.
type WarningResponse struct {
	Event       Event `json:"event"`
	Count       int   `json:"count"`
	MaxWarnings int   `json:"max_warnings"`
}

// DeterrentResponse echoes a suppressed deterrent signal.
type DeterrentResponse struct {
	Event  Event  `json:"event"`
	Signal string `json:"signal"`
}

// PhaseResponse announces a phase transition.
type PhaseResponse struct {
	Event Event  `json:"event"`
	Phase string `json:"phase"`
}

// GradedResponse delivers the score of a just-closed phase.
type GradedResponse struct {
	Event Event   `json:"event"`
	Phase string  `json:"phase"`
	Score float64 `json:"score"`
}

// EventEndedResponse announces the hard event deadline.
type EventEndedResponse struct {
	Event Event `json:"event"`
}

// ErrorResponse carries a fatal or rejected-action error.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// PongResponse answers a ping.
type PongResponse struct {
	Event Event `json:"event"`
}

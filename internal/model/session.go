package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase enumerates the stages of an assessment session.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseQuiz       Phase = "QUIZ"
	PhaseCoding     Phase = "CODING"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseTimedOut   Phase = "TIMED_OUT"
)

// Terminal reports whether the phase is a terminal state.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseTimedOut
}

// TerminationReason records why a session ended.
type TerminationReason string

const (
	TerminationNormal    TerminationReason = "NORMAL"
	TerminationTimeout   TerminationReason = "TIMEOUT"
	TerminationViolation TerminationReason = "PROCTORING_VIOLATION"
)

// Session represents one participant's attempt at one challenge, from start
// to terminal phase. A session holds at most one active phase at a time.
type Session struct {
	ID                uuid.UUID          `json:"id"`
	ChallengeID       uuid.UUID          `json:"challenge_id"`
	EventID           uuid.UUID          `json:"event_id"`
	ParticipantID     int                `json:"participant_id"`
	Phase             Phase              `json:"phase"`
	StartedAt         time.Time          `json:"started_at"`
	PhaseDeadline     *time.Time         `json:"phase_deadline,omitempty"`
	WarningCount      int                `json:"warning_count"`
	TerminationReason *TerminationReason `json:"termination_reason,omitempty"`
	FinishedAt        *time.Time         `json:"finished_at,omitempty"`
}

// SessionState is the recovery payload returned after a page reload: what has
// been answered so far and how much phase time remains.
type SessionState struct {
	ChallengeID      uuid.UUID         `json:"challenge_id"`
	ParticipantID    int               `json:"participant_id"`
	Phase            Phase             `json:"phase"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingTime    float64           `json:"remaining_time_seconds"`
	WarningCount     int               `json:"warning_count"`
}

// JoinChallengeRequest is the payload for a participant entering a challenge.
type JoinChallengeRequest struct {
	EntryToken string `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

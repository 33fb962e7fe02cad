package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubmissionType distinguishes the two graded phases.
type SubmissionType string

const (
	SubmissionTypeMCQ    SubmissionType = "mcq"
	SubmissionTypeCoding SubmissionType = "coding"
)

// Submission is an append-only record of one graded phase of a session.
// Exactly one submission is expected per (session, phase), even under
// auto-submit; the store enforces this with a unique key.
type Submission struct {
	ID               uuid.UUID       `json:"id"`
	SessionID        uuid.UUID       `json:"session_id"`
	Type             SubmissionType  `json:"type"`
	Payload          json.RawMessage `json:"payload"` // answer map or {language, code}
	Score            float64         `json:"score"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MCQPayload is the submission payload for the quiz phase.
type MCQPayload struct {
	Answers map[string]string `json:"answers"` // question id → selected option
}

// CodingPayload is the submission payload for the coding phase.
type CodingPayload struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

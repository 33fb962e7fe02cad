package model

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus enumerates the possible states of a challenge.
type ChallengeStatus string

const (
	ChallengeStatusDraft     ChallengeStatus = "DRAFT"
	ChallengeStatusPublished ChallengeStatus = "PUBLISHED"
	ChallengeStatusArchived  ChallengeStatus = "ARCHIVED"
)

// Challenge represents one graded unit inside an event: an MCQ quiz followed
// by a coding problem.
type Challenge struct {
	ID                  uuid.UUID       `json:"id"`
	EventID             uuid.UUID       `json:"event_id"`
	Title               string          `json:"title"`
	Topic               string          `json:"topic"`
	AuthorID            int             `json:"author_id"`
	QuizDurationMinutes int             `json:"quiz_duration_minutes"`
	EntryToken          string          `json:"entry_token,omitempty"`
	Status              ChallengeStatus `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ChallengePayload is the Redis-cached payload sent to participants when the
// quiz phase starts (no correct answers).
type ChallengePayload struct {
	ChallengeID         uuid.UUID                `json:"challenge_id"`
	Title               string                   `json:"title"`
	QuizDurationMinutes int                      `json:"quiz_duration_minutes"`
	Questions           []QuestionForParticipant `json:"questions"`
}

// CreateChallengeRequest is the payload for creating a new challenge.
type CreateChallengeRequest struct {
	EventID             uuid.UUID `json:"event_id" binding:"required"`
	Title               string    `json:"title" binding:"required,min=3,max=255"`
	Topic               string    `json:"topic" binding:"omitempty,max=100"`
	QuizDurationMinutes int       `json:"quiz_duration_minutes" binding:"required,min=1,max=480"`
	EntryToken          string    `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// UpdateChallengeRequest is the payload for updating an existing draft challenge.
type UpdateChallengeRequest struct {
	Title               string `json:"title" binding:"omitempty,min=3,max=255"`
	Topic               string `json:"topic" binding:"omitempty,max=100"`
	QuizDurationMinutes int    `json:"quiz_duration_minutes" binding:"omitempty,min=1,max=480"`
	EntryToken          string `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

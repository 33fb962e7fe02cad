package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question represents a single multiple-choice quiz question. Questions are
// immutable once loaded into a session.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ChallengeID   uuid.UUID       `json:"challenge_id"`
	Prompt        string          `json:"prompt"`
	Options       json.RawMessage `json:"options"`
	CorrectOption string          `json:"correct_option"`
	Points        int             `json:"points"`
	OrderNum      int             `json:"order_num"`
}

// QuestionForParticipant is a question stripped of its correct answer, as
// delivered to the browser.
type QuestionForParticipant struct {
	ID       uuid.UUID       `json:"id"`
	Prompt   string          `json:"prompt"`
	Options  json.RawMessage `json:"options"`
	OrderNum int             `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question to a challenge.
type AddQuestionRequest struct {
	Prompt        string          `json:"prompt" binding:"required,min=1,max=2000"`
	Options       json.RawMessage `json:"options" binding:"required"`
	CorrectOption string          `json:"correct_option" binding:"required,max=200"`
	Points        int             `json:"points" binding:"omitempty,min=0"`
	OrderNum      int             `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a challenge's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}

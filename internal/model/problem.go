package model

import (
	"github.com/google/uuid"
)

// Difficulty drives the coding phase deadline length.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DeadlineSeconds returns the coding phase duration for this difficulty.
// Unknown difficulties fall back to the medium deadline.
func (d Difficulty) DeadlineSeconds() int {
	switch d {
	case DifficultyEasy:
		return 600
	case DifficultyMedium:
		return 1200
	case DifficultyHard:
		return 1800
	}
	return 1200
}

// TestCase is one input/expected-output pair for a coding problem.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected_output"`
}

// Problem represents a coding problem attached to a challenge.
type Problem struct {
	ID          uuid.UUID         `json:"id"`
	ChallengeID uuid.UUID         `json:"challenge_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Difficulty  Difficulty        `json:"difficulty"`
	Templates   map[string]string `json:"templates"` // language → starter source
	TestCases   []TestCase        `json:"test_cases"`
}

// ProblemForParticipant is a problem with the hidden test cases removed.
// Only the first VisibleTestCases cases are exposed for "run" feedback.
type ProblemForParticipant struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Difficulty  Difficulty        `json:"difficulty"`
	Templates   map[string]string `json:"templates"`
	SampleCases []TestCase        `json:"sample_cases"`
}

// UpsertProblemRequest is the payload for creating or replacing a challenge's
// coding problem.
type UpsertProblemRequest struct {
	Title       string            `json:"title" binding:"required,min=3,max=255"`
	Description string            `json:"description" binding:"required"`
	Difficulty  string            `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Templates   map[string]string `json:"templates" binding:"required"`
	TestCases   []TestCase        `json:"test_cases" binding:"required,min=1,dive"`
}

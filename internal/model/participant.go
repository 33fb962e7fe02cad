package model

import "time"

// Participant represents a learner account on the platform.
type Participant struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CohortID     int       `json:"cohort_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ParticipantLoginRequest is the payload for participant authentication.
type ParticipantLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// ParticipantLoginResponse is returned after successful participant login.
type ParticipantLoginResponse struct {
	Token       string      `json:"token"`
	Participant Participant `json:"participant"`
}

// CreateParticipantRequest is the payload for registering a participant account.
type CreateParticipantRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	CohortID int    `json:"cohort_id" binding:"omitempty"`
}

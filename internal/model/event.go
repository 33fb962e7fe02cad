package model

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus enumerates the lifecycle of a hackathon or assessment event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusEnded     EventStatus = "ENDED"
)

// Event is a hackathon or scheduled assessment grouping one or more
// challenges. EndsAt is the hard deadline after which all sessions terminate.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Status    EventStatus `json:"status"`
	StartsAt  *time.Time  `json:"starts_at,omitempty"`
	EndsAt    *time.Time  `json:"ends_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title    string     `json:"title" binding:"required,min=3,max=255"`
	StartsAt *time.Time `json:"starts_at" binding:"omitempty"`
	EndsAt   *time.Time `json:"ends_at" binding:"omitempty,gtfield=StartsAt"`
}

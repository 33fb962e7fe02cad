package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/rs/zerolog"
)

// EventService handles event lifecycle management.
type EventService struct {
	events   *repository.EventRepository
	sessions *SessionService
	log      zerolog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(events *repository.EventRepository, sessions *SessionService, log zerolog.Logger) *EventService {
	return &EventService{
		events:   events,
		sessions: sessions,
		log:      log.With().Str("component", "event_service").Logger(),
	}
}

// Create registers a new draft event.
func (s *EventService) Create(ctx context.Context, req *model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		Title:    req.Title,
		Status:   model.EventStatusDraft,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get retrieves an event by id.
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List retrieves events, paginated.
func (s *EventService) List(ctx context.Context, limit, offset int) ([]model.Event, int, error) {
	return s.events.ListPaginated(ctx, limit, offset)
}

// Publish opens an event for participants.
func (s *EventService) Publish(ctx context.Context, id uuid.UUID) error {
	return s.events.UpdateStatus(ctx, id, model.EventStatusPublished)
}

// End closes an event early: all open sessions are force-terminated and the
// event is stamped ended.
func (s *EventService) End(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.ForceEndEvent(ctx, id); err != nil {
		return err
	}
	if err := s.events.UpdateStatus(ctx, id, model.EventStatusEnded); err != nil {
		return err
	}
	s.log.Info().Str("event_id", id.String()).Msg("Event ended by admin")
	return nil
}

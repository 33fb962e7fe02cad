package service

import (
	"context"

	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ParticipantService handles admin-side participant account management.
type ParticipantService struct {
	participants *repository.ParticipantRepository
	auth         *AuthService
	log          zerolog.Logger
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(participants *repository.ParticipantRepository, auth *AuthService, log zerolog.Logger) *ParticipantService {
	return &ParticipantService{
		participants: participants,
		auth:         auth,
		log:          log.With().Str("component", "participant_service").Logger(),
	}
}

// Create registers a new participant account.
func (s *ParticipantService) Create(ctx context.Context, req *model.CreateParticipantRequest) (*model.Participant, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	participant := &model.Participant{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		CohortID:     req.CohortID,
	}
	if err := s.participants.Create(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// List retrieves participants, paginated, with optional cohort filter.
func (s *ParticipantService) List(ctx context.Context, cohortID *int, limit, offset int) ([]model.Participant, int, error) {
	return s.participants.ListPaginated(ctx, cohortID, limit, offset)
}

// Get retrieves one participant.
func (s *ParticipantService) Get(ctx context.Context, id int) (*model.Participant, error) {
	return s.participants.GetByID(ctx, id)
}

// ResetLogin clears a participant's active device login so they can sign in
// again. Used when a participant loses a session mid-event.
func (s *ParticipantService) ResetLogin(ctx context.Context, id int) error {
	if err := s.auth.ResetParticipantLogin(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int("participant_id", id).Msg("Participant login reset")
	return nil
}

// ResetPassword replaces a participant's password.
func (s *ParticipantService) ResetPassword(ctx context.Context, id int, password string) error {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.participants.UpdatePassword(ctx, id, hash)
}

// Delete removes a participant account.
func (s *ParticipantService) Delete(ctx context.Context, id int) error {
	return s.participants.Delete(ctx, id)
}

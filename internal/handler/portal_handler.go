package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/executor"
	"github.com/mavericks-edu/mavericks-backend/internal/middleware"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/response"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
	"github.com/mavericks-edu/mavericks-backend/internal/validator"
)

// RunCodeRequest is the payload for run-mode code feedback.
type RunCodeRequest struct {
	Language string `json:"language" binding:"required,max=40"`
	Code     string `json:"code" binding:"required,max=65536"`
}

// RunSampleCases caps how many test cases run-mode feedback executes.
const RunSampleCases = 2

// PortalHandler handles the participant-facing challenge flow: lobby, join,
// payload, state recovery, problem view, run feedback and leaderboard.
type PortalHandler struct {
	sessionService     *service.SessionService
	leaderboardService *service.LeaderboardService
	executorClient     *executor.Client
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	sessionService *service.SessionService,
	leaderboardService *service.LeaderboardService,
	executorClient *executor.Client,
) *PortalHandler {
	return &PortalHandler{
		sessionService:     sessionService,
		leaderboardService: leaderboardService,
		executorClient:     executorClient,
	}
}

// Lobby godoc
// GET /api/v1/portal/events/:event_id/challenges
// Lists the published challenges of an event.
func (h *PortalHandler) Lobby(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	challenges, err := h.sessionService.Lobby(c.Request.Context(), eventID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"challenges": challenges})
}

// Join godoc
// POST /api/v1/portal/challenges/:challenge_id/join
// Enters the participant into a challenge. Idempotent while the session is live.
func (h *PortalHandler) Join(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.JoinChallengeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Join(c.Request.Context(), claims.UserID, challengeID, req.EntryToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeUnavailable):
			response.Fail(c, http.StatusForbidden, response.ErrChallengeNotAvailable)
		case errors.Is(err, service.ErrInvalidEntryToken):
			response.Fail(c, http.StatusForbidden, response.ErrInvalidEntryToken)
		case errors.Is(err, service.ErrEventNotRunning), errors.Is(err, service.ErrEventOver):
			response.Fail(c, http.StatusForbidden, response.ErrEventEnded)
		case errors.Is(err, service.ErrSessionOver):
			response.Fail(c, http.StatusConflict, response.ErrSessionTerminated)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// Payload godoc
// GET /api/v1/portal/challenges/:challenge_id/payload
// Returns the quiz payload (no answer key) for a joined session.
func (h *PortalHandler) Payload(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// A payload read without a joined session leaks quiz content.
	if _, err := h.sessionService.State(c.Request.Context(), challengeID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrChallengeNotAvailable)
		return
	}

	payload, err := h.sessionService.Payload(c.Request.Context(), challengeID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payload": payload})
}

// State godoc
// GET /api/v1/portal/challenges/:challenge_id/state
// Returns the recovery payload after a page reload.
func (h *PortalHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), challengeID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// Problem godoc
// GET /api/v1/portal/challenges/:challenge_id/problem
// Returns the coding problem, hidden test cases stripped. Coding phase only.
func (h *PortalHandler) Problem(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	problem, err := h.sessionService.ProblemForParticipant(c.Request.Context(), challengeID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrChallengeUnavailable) {
			response.Fail(c, http.StatusForbidden, response.ErrChallengeNotAvailable)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNoProblem)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"problem": problem})
}

// RunCode godoc
// POST /api/v1/portal/challenges/:challenge_id/run
// Executes the draft against the sample test cases for quick feedback.
// Nothing is graded or persisted.
func (h *PortalHandler) RunCode(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req RunCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Coding phase gate; also confirms the session exists.
	if _, err := h.sessionService.ProblemForParticipant(c.Request.Context(), challengeID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrChallengeNotAvailable)
		return
	}

	tests, err := h.sessionService.SampleTestCases(c.Request.Context(), challengeID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	result, err := h.executorClient.Run(c.Request.Context(), req.Language, req.Code, tests, RunSampleCases)
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrExecutionFailed)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Leaderboard godoc
// GET /api/v1/portal/events/:event_id/leaderboard
// Returns the event's ranked totals.
func (h *PortalHandler) Leaderboard(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	entries, err := h.leaderboardService.Top(c.Request.Context(), eventID, parseIntQuery(c, "limit", 50))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// MyScore godoc
// GET /api/v1/portal/events/:event_id/score
// Returns the authenticated participant's running event total.
func (h *PortalHandler) MyScore(c *gin.Context) {
	claims := middleware.GetClaims(c)
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	score, err := h.leaderboardService.ParticipantScore(c.Request.Context(), claims.UserID, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Success(c, http.StatusOK, gin.H{"score": gin.H{"total_score": 0}})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"score": score})
}

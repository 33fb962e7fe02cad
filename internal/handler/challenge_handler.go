package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/middleware"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/response"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
	"github.com/mavericks-edu/mavericks-backend/internal/validator"
)

// ChallengeHandler handles admin challenge authoring endpoints.
type ChallengeHandler struct {
	challengeService *service.ChallengeService
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challengeService *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

func challengeFail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotChallengeAuthor)
	case errors.Is(err, service.ErrNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrChallengeNotDraft)
	case errors.Is(err, service.ErrNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrChallengeNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	case errors.Is(err, service.ErrNoProblem):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoProblem)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Create godoc
// POST /api/v1/admin/challenges
func (h *ChallengeHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateChallengeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	challenge, err := h.challengeService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"challenge": challenge})
}

// Get godoc
// GET /api/v1/admin/challenges/:challenge_id
func (h *ChallengeHandler) Get(c *gin.Context) {
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	challenge, err := h.challengeService.Get(c.Request.Context(), challengeID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"challenge": challenge})
}

// ListByEvent godoc
// GET /api/v1/admin/events/:event_id/challenges
func (h *ChallengeHandler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage, offset := parsePagination(c)
	challenges, total, err := h.challengeService.ListByEvent(c.Request.Context(), eventID, perPage, offset)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"challenges": challenges}, buildPagination(page, perPage, total))
}

// Update godoc
// PUT /api/v1/admin/challenges/:challenge_id
// Draft challenges only; the author is the only editor.
func (h *ChallengeHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateChallengeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	challenge, err := h.challengeService.Update(c.Request.Context(), claims.UserID, challengeID, &req)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"challenge": challenge})
}

// AddQuestion godoc
// POST /api/v1/admin/challenges/:challenge_id/questions
func (h *ChallengeHandler) AddQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.challengeService.AddQuestion(c.Request.Context(), claims.UserID, challengeID, &req)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/challenges/:challenge_id/questions
// Replaces the whole question set in one transaction.
func (h *ChallengeHandler) ReplaceQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.challengeService.ReplaceQuestions(c.Request.Context(), claims.UserID, challengeID, &req); err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"replaced": len(req.Questions)})
}

// ListQuestions godoc
// GET /api/v1/admin/challenges/:challenge_id/questions
// Includes correct options; restricted to the challenge author.
func (h *ChallengeHandler) ListQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.challengeService.ListQuestions(c.Request.Context(), claims.UserID, challengeID)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// UpsertProblem godoc
// PUT /api/v1/admin/challenges/:challenge_id/problem
func (h *ChallengeHandler) UpsertProblem(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpsertProblemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	problem, err := h.challengeService.UpsertProblem(c.Request.Context(), claims.UserID, challengeID, &req)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"problem": problem})
}

// Publish godoc
// POST /api/v1/admin/challenges/:challenge_id/publish
// Requires at least one question and a coding problem; warms the Redis caches.
func (h *ChallengeHandler) Publish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	challenge, err := h.challengeService.Publish(c.Request.Context(), claims.UserID, challengeID)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"challenge": challenge})
}

// Archive godoc
// POST /api/v1/admin/challenges/:challenge_id/archive
func (h *ChallengeHandler) Archive(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.challengeService.Archive(c.Request.Context(), claims.UserID, challengeID); err != nil {
		challengeFail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListResults godoc
// GET /api/v1/admin/challenges/:challenge_id/results
// Session outcomes with per-phase scores and termination reasons.
func (h *ChallengeHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage, offset := parsePagination(c)
	results, total, err := h.challengeService.ListResults(c.Request.Context(), claims.UserID, challengeID, perPage, offset)
	if err != nil {
		challengeFail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, buildPagination(page, perPage, total))
}

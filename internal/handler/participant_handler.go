package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/mavericks-edu/mavericks-backend/internal/response"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
	"github.com/mavericks-edu/mavericks-backend/internal/validator"
)

// ResetPasswordRequest is the admin payload for resetting a participant password.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// ParticipantHandler handles admin participant management endpoints.
type ParticipantHandler struct {
	participantService *service.ParticipantService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(participantService *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// Create godoc
// POST /api/v1/admin/participants
func (h *ParticipantHandler) Create(c *gin.Context) {
	var req model.CreateParticipantRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.participantService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"participant": participant})
}

// List godoc
// GET /api/v1/admin/participants
// Lists participants with pagination, optionally filtered by cohort_id.
func (h *ParticipantHandler) List(c *gin.Context) {
	page, perPage, offset := parsePagination(c)

	var cohortID *int
	if cidStr := c.Query("cohort_id"); cidStr != "" {
		cid, err := strconv.Atoi(cidStr)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		cohortID = &cid
	}

	participants, total, err := h.participantService.List(c.Request.Context(), cohortID, perPage, offset)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"participants": participants}, buildPagination(page, perPage, total))
}

// Get godoc
// GET /api/v1/admin/participants/:id
func (h *ParticipantHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	participant, err := h.participantService.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participant": participant})
}

// ResetLogin godoc
// POST /api/v1/admin/participants/:id/reset-login
// Clears a participant's active device login so they can sign in again.
func (h *ParticipantHandler) ResetLogin(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.participantService.ResetLogin(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ResetPassword godoc
// POST /api/v1/admin/participants/:id/reset-password
func (h *ParticipantHandler) ResetPassword(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req ResetPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.participantService.ResetPassword(c.Request.Context(), id, req.Password); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Delete godoc
// DELETE /api/v1/admin/participants/:id
func (h *ParticipantHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.participantService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

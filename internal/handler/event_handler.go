package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/response"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
	"github.com/mavericks-edu/mavericks-backend/internal/validator"
)

// EventHandler handles admin event lifecycle endpoints.
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create godoc
// POST /api/v1/admin/events
func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"event": event})
}

// Get godoc
// GET /api/v1/admin/events/:event_id
func (h *EventHandler) Get(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	event, err := h.eventService.Get(c.Request.Context(), eventID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"event": event})
}

// List godoc
// GET /api/v1/admin/events
func (h *EventHandler) List(c *gin.Context) {
	page, perPage, offset := parsePagination(c)

	events, total, err := h.eventService.List(c.Request.Context(), perPage, offset)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"events": events}, buildPagination(page, perPage, total))
}

// Publish godoc
// POST /api/v1/admin/events/:event_id/publish
func (h *EventHandler) Publish(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.eventService.Publish(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// End godoc
// POST /api/v1/admin/events/:event_id/end
// Force-closes every open session of the event, then marks it ended.
func (h *EventHandler) End(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.eventService.End(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

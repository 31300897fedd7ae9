package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventbooking/internal/models"
)

const maxSearchLimit = 100

func eventResponses(events []models.Event) []models.EventResponse {
	out := make([]models.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, models.NewEventResponse(e))
	}
	return out
}

// CreateEvent - POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.services.Events.CreateEvent(c.Request.Context(), p, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewEventResponse(*event))
}

// ListEvents - GET /api/events
// Upcoming events, or a text search when ?query= is set.
func (h *Handlers) ListEvents(c *gin.Context) {
	query := c.Query("query")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > maxSearchLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "limit must be between 1 and 100",
			"code":  "invalid_argument",
		})
		return
	}

	var events []models.Event
	if query == "" {
		events, err = h.services.Events.ListUpcoming(c.Request.Context())
	} else {
		events, err = h.services.Events.SearchEvents(c.Request.Context(), query, limit)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventResponses(events))
}

// ListMyEvents - GET /api/events/mine
func (h *Handlers) ListMyEvents(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	events, err := h.services.Events.ListEventsByCreator(c.Request.Context(), p.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventResponses(events))
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	event, err := h.services.Events.GetEvent(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewEventResponse(*event))
}

// UpdateEvent - PATCH /api/events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.services.Events.UpdateEvent(c.Request.Context(), p, id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewEventResponse(*event))
}

// DeleteEvent - DELETE /api/events/:id
// Archives the event; returns 204 without a body.
func (h *Handlers) DeleteEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Events.DeleteEvent(c.Request.Context(), p, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListEventBookings - GET /api/events/:id/bookings
func (h *Handlers) ListEventBookings(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bookings, err := h.services.Events.ListEventBookings(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookingResponses(bookings))
}

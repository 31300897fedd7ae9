package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventbooking/internal/models"
)

func bookingResponses(bookings []models.Booking) []models.BookingResponse {
	out := make([]models.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, models.NewBookingResponse(b))
	}
	return out
}

// CreateBooking - POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.services.Bookings.CreateBooking(c.Request.Context(), p, req.EventID, req.Seats)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewBookingResponse(*booking))
}

// ListBookings - GET /api/bookings
func (h *Handlers) ListBookings(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	bookings, err := h.services.Bookings.ListBookingsByUser(c.Request.Context(), p.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookingResponses(bookings))
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, err := h.services.Bookings.GetBookingFor(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewBookingResponse(*booking))
}

// ConfirmBooking - PATCH /api/bookings/confirm
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.services.Bookings.GetBookingFor(ctx, p, req.BookingID); err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.services.Bookings.ConfirmBooking(ctx, req.BookingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ConfirmBookingResponse{
		Booking:      models.NewBookingResponse(result.Booking),
		CalendarLink: h.services.Bookings.CalendarLinkFor(ctx, result),
	})
}

// CancelBooking - PATCH /api/bookings/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.services.Bookings.GetBookingFor(ctx, p, req.BookingID); err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.services.Bookings.CancelBooking(ctx, req.BookingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewBookingResponse(result.Booking))
}

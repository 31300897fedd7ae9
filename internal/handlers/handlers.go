package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/logger"
	"eventbooking/internal/middleware"
	"eventbooking/internal/models"
	"eventbooking/internal/service"
)

type Handlers struct {
	services    *service.Services
	tokenSecret []byte
	tokenTTL    time.Duration
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// WithTokens enables POST /api/auth/token, signing with secret
func (h *Handlers) WithTokens(secret []byte, ttl time.Duration) *Handlers {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	h.tokenSecret = secret
	h.tokenTTL = ttl
	return h
}

// principal returns the authenticated caller or aborts with 401
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": apperrors.ErrUnauthorized.Error(),
			"code":  apperrors.KindUnauthorized.String(),
		})
		return models.Principal{}, false
	}
	return p, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid " + name,
			"code":  apperrors.KindInvalidArgument.String(),
		})
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  apperrors.KindInvalidArgument.String(),
	})
}

// handleServiceError maps an error kind to its HTTP status
func handleServiceError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindInsufficientSeats,
		apperrors.KindSeatsExhausted,
		apperrors.KindAlreadyConfirmed,
		apperrors.KindAlreadyCancelled,
		apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindPermissionDenied:
		status = http.StatusForbidden
	case apperrors.KindInvalidArgument:
		status = http.StatusBadRequest
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("Request failed", "error", err, "path", c.FullPath())
		_ = c.Error(err)
		message = "Internal server error"
	}

	c.JSON(status, gin.H{"error": message, "code": kind.String()})
}

// Register mounts the API routes on api. auth resolves the principal for
// everything except registration.
func (h *Handlers) Register(api *gin.RouterGroup, auth gin.HandlerFunc) {
	api.POST("/users", h.RegisterUser)

	api = api.Group("", auth)

	api.POST("/auth/token", h.IssueToken)
	api.PATCH("/users/:id/block", h.ToggleBlockUser)

	events := api.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("", h.ListEvents)
		events.GET("/mine", h.ListMyEvents)
		events.GET("/:id", h.GetEvent)
		events.PATCH("/:id", h.UpdateEvent)
		events.DELETE("/:id", h.DeleteEvent)
		events.GET("/:id/bookings", h.ListEventBookings)
	}

	bookings := api.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/confirm", h.ConfirmBooking)
		bookings.PATCH("/cancel", h.CancelBooking)
	}
}

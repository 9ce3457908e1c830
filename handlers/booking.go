package handlers

import (
	"errors"
	"net/http"

	"builderhub/middleware"
	"builderhub/services/booking"
	"builderhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	Service booking.LifecycleService
	Logger  *zap.Logger
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(svc booking.LifecycleService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, Logger: logger}
}

// CreateBookingHandler handles the scheduling-provider callback that
// completes a reservation. Works for both authenticated and anonymous
// requests.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid booking payload", err.Error())
		return
	}
	input.ClientID = middleware.ClientID(c)

	result, err := h.Service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err, "failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateShellHandler pre-creates an anonymous booking shell before the
// scheduling embed opens.
func (h *BookingHandler) CreateShellHandler(c *gin.Context) {
	var input booking.ShellInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid shell payload", err.Error())
		return
	}
	input.ClientID = middleware.ClientID(c)

	result, err := h.Service.CreateShell(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err, "failed to create booking shell")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ClaimBookingHandler attaches the signed-in client to an anonymous
// booking, proven by the claim token.
func (h *BookingHandler) ClaimBookingHandler(c *gin.Context) {
	var input struct {
		ClaimToken string `json:"claim_token"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid claim payload", err.Error())
		return
	}

	b, err := h.Service.ClaimBooking(c.Request.Context(), input.ClaimToken, middleware.ClientID(c))
	if err != nil {
		h.respondError(c, err, "failed to claim booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetBookingHandler returns the persisted booking record.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBookingHandler applies the explicit cancel edge.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	var input struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a bare cancel is fine.
	_ = c.ShouldBindJSON(&input)

	b, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), input.Reason)
	if err != nil {
		h.respondError(c, err, "failed to cancel booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": b.ID, "state": b.State})
}

// respondError maps the lifecycle error taxonomy onto HTTP semantics.
func (h *BookingHandler) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		utils.JSONError(c, http.StatusBadRequest, msg, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, msg, err.Error())
	case errors.Is(err, booking.ErrClaimDenied):
		utils.JSONError(c, http.StatusForbidden, msg, err.Error())
	case errors.Is(err, booking.ErrCollaboratorUnavailable), errors.Is(err, booking.ErrConflictExceeded):
		c.Header("Retry-After", "5")
		utils.JSONError(c, http.StatusServiceUnavailable, msg, err.Error())
	default:
		h.Logger.Error(msg, zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, msg, "unexpected error")
	}
}

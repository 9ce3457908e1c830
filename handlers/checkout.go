package handlers

import (
	"net/http"

	"builderhub/services/booking"
	"builderhub/utils"

	"github.com/gin-gonic/gin"
)

// StartCheckoutHandler opens (or reuses) a hosted checkout session for a
// priced booking.
func (h *BookingHandler) StartCheckoutHandler(c *gin.Context) {
	var input booking.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid checkout payload", err.Error())
		return
	}

	result, err := h.Service.StartCheckout(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err, "failed to start checkout")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckoutStatusHandler is the pull reconciliation path: a client polling
// a known checkout session.
func (h *BookingHandler) CheckoutStatusHandler(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing sessionId", "sessionId query parameter is required")
		return
	}

	result, err := h.Service.PollCheckoutStatus(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err, "failed to fetch checkout status")
		return
	}
	c.JSON(http.StatusOK, result)
}

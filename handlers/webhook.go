package handlers

import (
	"errors"
	"net/http"

	"builderhub/services/booking"
	"builderhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentWebhookHandler receives the payment collaborator's signed
// notifications. Once the signature verifies, the response is 200 no
// matter whether the transition applied or was rejected as stale --
// anything else triggers provider retry storms.
func (h *BookingHandler) PaymentWebhookHandler(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "unreadable webhook payload", err.Error())
		return
	}
	signature := c.GetHeader("Stripe-Signature")

	err = h.Service.HandlePaymentWebhook(c.Request.Context(), payload, signature)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, booking.ErrValidation):
		// Bad signature or malformed payload: reject so a real sender
		// notices misconfiguration.
		utils.JSONError(c, http.StatusBadRequest, "webhook rejected", err.Error())
	default:
		// The event was verified but could not be applied yet (e.g. the
		// booking write is still in flight). 5xx makes the provider retry.
		h.Logger.Error("webhook processing failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "webhook processing failed", "temporary failure, retry expected")
	}
}

package routes

import (
	"builderhub/handlers"
	"builderhub/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers all endpoints for the booking lifecycle.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	api := r.Group("/api")
	{
		bookings := api.Group("/bookings")
		bookings.Use(middleware.OptionalAuthMiddleware())
		// The bare POST is the scheduling-provider callback; /shell
		// pre-creates the anonymous record before the embed opens.
		bookings.POST("", bh.CreateBookingHandler)
		bookings.POST("/shell", bh.CreateShellHandler)
		bookings.GET("/:id", bh.GetBookingHandler)
		bookings.POST("/:id/cancel", bh.CancelBookingHandler)
		bookings.POST("/claim", middleware.RequireAuthMiddleware(), bh.ClaimBookingHandler)

		checkout := api.Group("/checkout-sessions")
		checkout.Use(middleware.OptionalAuthMiddleware())
		checkout.POST("", bh.StartCheckoutHandler)
		checkout.GET("/status", bh.CheckoutStatusHandler)

		// Signature-authenticated; no bearer auth involved.
		api.POST("/payment-webhook", bh.PaymentWebhookHandler)
	}
}

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gateway-payment-bridge/internal/api/handler"
	"github.com/gateway-payment-bridge/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	registry *prometheus.Registry,
	webhookHandler *handler.WebhookHandler,
	checkoutHandler *handler.CheckoutHandler,
	orderHandler *handler.OrderHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.RequestID())

	// Gateway-facing endpoints
	r.POST("/webhooks/gateway", webhookHandler.Receive)
	r.GET("/payments/return", checkoutHandler.CompleteReturn)

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", checkoutHandler.CreateOrder)
			orders.GET("", orderHandler.List)
			orders.GET("/:orderNo", orderHandler.GetByOrderNo)
			orders.POST("/:orderNo/pay", checkoutHandler.StartPayment)

			orders.POST("/:orderNo/refresh", orderHandler.Refresh)
			orders.POST("/:orderNo/approve", orderHandler.Approve)
			orders.POST("/:orderNo/approve-fraud", orderHandler.ApproveFraud)
			orders.POST("/:orderNo/cancel", orderHandler.Cancel)

			orders.POST("/:orderNo/refunds", orderHandler.CreateRefund)
			orders.GET("/:orderNo/refunds/:refundID", orderHandler.GetRefund)
			orders.POST("/:orderNo/refunds/:refundID/cancel", orderHandler.CancelRefund)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

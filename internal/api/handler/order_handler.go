package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/gateway"
	"github.com/gateway-payment-bridge/internal/orderactions"
)

// OrderHandler handles the back-office order and payment action endpoints
type OrderHandler struct {
	orders  order.Repository
	actions ActionService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(logger *slog.Logger, orders order.Repository, actions ActionService) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		actions: actions,
		logger:  logger,
	}
}

// GetByOrderNo returns one order with its payment instrument
func (h *OrderHandler) GetByOrderNo(c *gin.Context) {
	orderNo := c.Param("orderNo")

	o, err := h.orders.GetByOrderNo(c.Request.Context(), orderNo)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound{}) {
			RespondNotFound(c, "Order not found")
			return
		}
		h.logger.Error("Failed to get order", "order_no", orderNo, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

// List returns orders filtered by their last applied gateway status
func (h *OrderHandler) List(c *gin.Context) {
	gatewayStatus := c.Query("gateway_status")
	if gatewayStatus == "" {
		RespondBadRequest(c, "Missing gateway_status query parameter")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	orders, err := h.actions.ListByGatewayStatus(c.Request.Context(), gatewayStatus, pagination.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list orders", "gateway_status", gatewayStatus, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, mapOrderToResponse(o))
	}

	RespondWithPage(c, responses, pagination.Page, pagination.PerPage)
}

// Refresh pulls the current payment state from the gateway and applies it
func (h *OrderHandler) Refresh(c *gin.Context) {
	o, err := h.actions.RefreshStatus(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		h.respondActionError(c, err)
		return
	}
	RespondOK(c, mapOrderToResponse(o))
}

// ApproveFraud releases a payment held in fraud review
func (h *OrderHandler) ApproveFraud(c *gin.Context) {
	h.runAction(c, func(orderNo string, correlationID uuid.UUID, _ float64) (*order.Order, error) {
		return h.actions.ApproveFraudPending(c.Request.Context(), orderNo, correlationID)
	})
}

// Approve captures a payment awaiting merchant approval
func (h *OrderHandler) Approve(c *gin.Context) {
	h.runAction(c, func(orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error) {
		return h.actions.ApprovePendingApproval(c.Request.Context(), orderNo, correlationID, amount)
	})
}

// Cancel cancels the order's payment on the gateway
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.runAction(c, func(orderNo string, correlationID uuid.UUID, _ float64) (*order.Order, error) {
		return h.actions.CancelPayment(c.Request.Context(), orderNo, correlationID)
	})
}

// CreateRefund refunds part or all of the order's payment
func (h *OrderHandler) CreateRefund(c *gin.Context) {
	orderNo := c.Param("orderNo")

	var req RefundCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	correlationID, err := uuid.Parse(req.CorrelationID)
	if err != nil {
		RespondBadRequest(c, "Invalid correlation id")
		return
	}

	o, err := h.actions.CreateRefund(c.Request.Context(), orderNo, correlationID, req.Amount)
	if err != nil {
		h.respondActionError(c, err)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

// GetRefund pulls the current state of one of the order's refunds
func (h *OrderHandler) GetRefund(c *gin.Context) {
	o, err := h.actions.GetRefundStatus(c.Request.Context(), c.Param("orderNo"), c.Param("refundID"))
	if err != nil {
		h.respondActionError(c, err)
		return
	}
	RespondOK(c, mapOrderToResponse(o))
}

// CancelRefund cancels a refund that has not completed
func (h *OrderHandler) CancelRefund(c *gin.Context) {
	orderNo := c.Param("orderNo")
	refundID := c.Param("refundID")

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	correlationID, err := uuid.Parse(req.CorrelationID)
	if err != nil {
		RespondBadRequest(c, "Invalid correlation id")
		return
	}

	o, err := h.actions.CancelRefund(c.Request.Context(), orderNo, refundID, correlationID)
	if err != nil {
		h.respondActionError(c, err)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

func (h *OrderHandler) runAction(c *gin.Context, action func(orderNo string, correlationID uuid.UUID, amount float64) (*order.Order, error)) {
	orderNo := c.Param("orderNo")

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	correlationID, err := uuid.Parse(req.CorrelationID)
	if err != nil {
		RespondBadRequest(c, "Invalid correlation id")
		return
	}

	o, err := action(orderNo, correlationID, req.Amount)
	if err != nil {
		h.respondActionError(c, err)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

func (h *OrderHandler) respondActionError(c *gin.Context, err error) {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, order.ErrOrderNotFound{}):
		RespondNotFound(c, "Order not found")
	case errors.Is(err, order.ErrCorrelationMismatch):
		RespondForbidden(c, "Correlation id does not match order")
	case errors.Is(err, orderactions.ErrNoGatewayPayment):
		RespondConflict(c, "NO_PAYMENT", err.Error())
	case errors.Is(err, orderactions.ErrNotCancellable):
		RespondConflict(c, "NOT_CANCELLABLE", err.Error())
	case errors.Is(err, orderactions.ErrRefundTooLarge):
		RespondUnprocessable(c, "REFUND_TOO_LARGE", err.Error())
	case errors.Is(err, orderactions.ErrStatusOutOfSync):
		RespondConflict(c, "STATUS_OUT_OF_SYNC", err.Error())
	case errors.Is(err, orderactions.ErrUnknownRefund):
		RespondNotFound(c, err.Error())
	case errors.Is(err, orderactions.ErrEmptyStatusResult):
		RespondConflict(c, "NO_GATEWAY_STATE", err.Error())
	case errors.Is(err, orderactions.ErrGatewayTimeout):
		RespondGatewayTimeout(c)
	case errors.As(err, &apiErr):
		h.logger.Warn("Gateway rejected the action", "error", apiErr)
		RespondBadGateway(c, apiErr.FirstMessage())
	default:
		h.logger.Error("Payment action failed", "error", err)
		RespondInternalError(c)
	}
}

package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/gateway-payment-bridge/internal/checkout"
	"github.com/gateway-payment-bridge/internal/domain/order"
	"github.com/gateway-payment-bridge/internal/gateway"
)

// CheckoutHandler handles the shopper-facing order and payment endpoints
type CheckoutHandler struct {
	service CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(logger *slog.Logger, service CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger,
	}
}

// CreateOrder registers a new order awaiting payment
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	o, err := h.service.CreateOrder(c.Request.Context(), mapDraft(&req))
	if err != nil {
		var dup order.ErrDuplicateOrder
		if errors.As(err, &dup) {
			RespondConflict(c, "DUPLICATE_ORDER", dup.Error())
			return
		}
		if errors.Is(err, order.ErrEmptyOrderNo) || errors.Is(err, order.ErrEmptyCurrency) || errors.Is(err, order.ErrNoLineItems) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create order", "order_no", req.OrderNo, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapOrderToResponse(o))
}

// StartPayment opens a payment for the order
func (h *CheckoutHandler) StartPayment(c *gin.Context) {
	orderNo := c.Param("orderNo")

	var req StartPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "order_no", orderNo, "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	input := checkout.PaymentInput{
		Method:     order.Method(req.Method),
		CardHolder: req.CardHolder,
		CardExpiry: req.CardExpiry,
		Secrets: gateway.CardSecrets{
			CardNumber: req.CardNumber,
			CVV:        req.CVV,
			Token:      req.Token,
		},
		ClientIP: c.ClientIP(),
	}

	start, err := h.service.StartPayment(c.Request.Context(), orderNo, input)
	if err != nil {
		h.respondCheckoutError(c, orderNo, err)
		return
	}

	RespondOK(c, start)
}

// CompleteReturn finishes a redirect flow when the shopper's browser comes
// back from the gateway
func (h *CheckoutHandler) CompleteReturn(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		RespondBadRequest(c, "Missing return token")
		return
	}

	result, err := h.service.CompleteReturn(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidReturnToken):
			RespondForbidden(c, "Invalid return token")
		case errors.Is(err, checkout.ErrExpiredReturnToken):
			RespondForbidden(c, "Return token has expired")
		default:
			h.respondCheckoutError(c, "", err)
		}
		return
	}

	RespondOK(c, result)
}

func (h *CheckoutHandler) respondCheckoutError(c *gin.Context, orderNo string, err error) {
	var notFound order.ErrOrderNotFound
	var apiErr *gateway.APIError
	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
	case errors.Is(err, checkout.ErrUnsupportedMethod):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, checkout.ErrOrderNotPayable), errors.Is(err, checkout.ErrNoPaymentSession):
		RespondConflict(c, "ORDER_NOT_PAYABLE", err.Error())
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		RespondGatewayTimeout(c)
	case errors.As(err, &apiErr):
		h.logger.Warn("Gateway rejected the payment", "order_no", orderNo, "error", apiErr)
		RespondUnprocessable(c, "PAYMENT_REJECTED", apiErr.FirstMessage())
	default:
		h.logger.Error("Checkout operation failed", "order_no", orderNo, "error", err)
		RespondInternalError(c)
	}
}

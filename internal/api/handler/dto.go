package handler

import (
	"time"

	"github.com/gateway-payment-bridge/internal/checkout"
	"github.com/gateway-payment-bridge/internal/domain/order"
)

// AddressDTO is an address in request and response bodies
type AddressDTO struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// LineItemDTO is one order line in a create request
type LineItemDTO struct {
	ProductID           string  `json:"product_id" binding:"required"`
	ProductName         string  `json:"product_name"`
	Quantity            int64   `json:"quantity" binding:"required,gt=0"`
	BaseUnitPrice       float64 `json:"base_unit_price" binding:"gte=0"`
	DiscountedUnitPrice float64 `json:"discounted_unit_price" binding:"gte=0"`
	TaxAmount           float64 `json:"tax_amount"`
}

// CreateOrderRequest registers an order awaiting payment
type CreateOrderRequest struct {
	OrderNo          string        `json:"order_no" binding:"required"`
	CustomerNo       string        `json:"customer_no"`
	CustomerName     string        `json:"customer_name"`
	CustomerEmail    string        `json:"customer_email"`
	Locale           string        `json:"locale"`
	Currency         string        `json:"currency" binding:"required,len=3"`
	TotalGrossAmount float64       `json:"total_gross_amount" binding:"required,gt=0"`
	ShippingTotal    float64       `json:"shipping_total"`
	TotalTax         float64       `json:"total_tax"`
	BillingAddress   AddressDTO    `json:"billing_address"`
	ShippingAddress  AddressDTO    `json:"shipping_address"`
	Items            []LineItemDTO `json:"items" binding:"required,min=1"`
}

// StartPaymentRequest opens a payment for an order. Card fields apply to the
// direct card method only and are never stored.
type StartPaymentRequest struct {
	Method     string `json:"method" binding:"required"`
	CardHolder string `json:"card_holder"`
	CardExpiry string `json:"card_expiry"` // MMyy
	CardNumber string `json:"card_number"`
	CVV        string `json:"cvv"`
	Token      string `json:"token"`
}

// ActionRequest authorizes an admin payment action. The correlation id must
// match the one issued when the order was created.
type ActionRequest struct {
	CorrelationID string  `json:"correlation_id" binding:"required,uuid"`
	Amount        float64 `json:"amount"`
}

// RefundCreateRequest creates a refund for an order
type RefundCreateRequest struct {
	CorrelationID string  `json:"correlation_id" binding:"required,uuid"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
}

// PaginationParams are the standard list query parameters
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"gte=1"`
	PerPage int `form:"per_page,default=20" binding:"gte=1,lte=100"`
}

// InstrumentResponse is the payment instrument view of an order
type InstrumentResponse struct {
	Method           string `json:"method"`
	Processor        string `json:"processor"`
	TransactionID    string `json:"transaction_id,omitempty"`
	HostedCheckoutID string `json:"hosted_checkout_id,omitempty"`
	AuthorizedAmount int64  `json:"authorized_amount,omitempty"`
	MaskedCardNumber string `json:"masked_card_number,omitempty"`
	CardExpiry       string `json:"card_expiry,omitempty"`
	PaymentProductID int    `json:"payment_product_id,omitempty"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	OrderNo          string              `json:"order_no"`
	CorrelationID    string              `json:"correlation_id"`
	Status           string              `json:"status"`
	ExportStatus     string              `json:"export_status"`
	PaymentStatus    string              `json:"payment_status"`
	GatewayStatus    string              `json:"gateway_status,omitempty"`
	RefundIDs        []string            `json:"refund_ids,omitempty"`
	CustomerNo       string              `json:"customer_no,omitempty"`
	CustomerEmail    string              `json:"customer_email,omitempty"`
	Currency         string              `json:"currency"`
	TotalGrossAmount float64             `json:"total_gross_amount"`
	Instrument       *InstrumentResponse `json:"instrument,omitempty"`
	Version          int                 `json:"version"`
	CreatedAt        string              `json:"created_at"`
	UpdatedAt        string              `json:"updated_at"`
}

func mapAddress(dto AddressDTO) order.Address {
	return order.Address{
		FirstName:   dto.FirstName,
		LastName:    dto.LastName,
		Address1:    dto.Address1,
		Address2:    dto.Address2,
		City:        dto.City,
		PostalCode:  dto.PostalCode,
		StateCode:   dto.StateCode,
		CountryCode: dto.CountryCode,
		Phone:       dto.Phone,
	}
}

func mapDraft(req *CreateOrderRequest) checkout.OrderDraft {
	items := make([]order.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.LineItem{
			ProductID:           item.ProductID,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			BaseUnitPrice:       item.BaseUnitPrice,
			DiscountedUnitPrice: item.DiscountedUnitPrice,
			TaxAmount:           item.TaxAmount,
		})
	}

	return checkout.OrderDraft{
		OrderNo:          req.OrderNo,
		CustomerNo:       req.CustomerNo,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		LocaleID:         req.Locale,
		Currency:         req.Currency,
		TotalGrossAmount: req.TotalGrossAmount,
		ShippingTotal:    req.ShippingTotal,
		TotalTax:         req.TotalTax,
		BillingAddress:   mapAddress(req.BillingAddress),
		ShippingAddress:  mapAddress(req.ShippingAddress),
		LineItems:        items,
	}
}

func mapOrderToResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		OrderNo:          o.OrderNo,
		CorrelationID:    o.CorrelationID.String(),
		Status:           string(o.Status),
		ExportStatus:     string(o.ExportStatus),
		PaymentStatus:    string(o.PaymentStatus),
		GatewayStatus:    o.GatewayStatus,
		RefundIDs:        o.RefundIDs,
		CustomerNo:       o.CustomerNo,
		CustomerEmail:    o.CustomerEmail,
		Currency:         o.Currency,
		TotalGrossAmount: o.TotalGrossAmount,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.Format(time.RFC3339),
	}

	if o.Instrument != nil {
		resp.Instrument = &InstrumentResponse{
			Method:           string(o.Instrument.Method),
			Processor:        string(o.Instrument.Processor),
			TransactionID:    o.Instrument.TransactionID,
			HostedCheckoutID: o.Instrument.HostedCheckoutID,
			AuthorizedAmount: o.Instrument.AuthorizedAmount,
			MaskedCardNumber: o.Instrument.MaskedCardNumber,
			CardExpiry:       o.Instrument.CardExpiry,
			PaymentProductID: o.Instrument.PaymentProductID,
		}
	}

	return resp
}

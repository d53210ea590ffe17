// Package wallet stores tokenized cards returned by hosted checkouts so a
// returning customer can pay without re-entering card details.
package wallet

import (
	"context"
	"time"
)

// StoredCard is a tokenized card attached to a customer
type StoredCard struct {
	CustomerNo       string    `json:"customer_no"`
	Token            string    `json:"token"`
	CardHolder       string    `json:"card_holder,omitempty"`
	MaskedCardNumber string    `json:"masked_card_number"`
	CardExpiry       string    `json:"card_expiry,omitempty"` // MMyy
	PaymentProductID int       `json:"payment_product_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Repository manages stored card persistence. AddIfAbsent treats the masked
// card number plus payment product as the identity of a card, so a re-used
// card never duplicates.
type Repository interface {
	AddIfAbsent(ctx context.Context, card *StoredCard) (added bool, err error)
	GetByCustomerNo(ctx context.Context, customerNo string) ([]*StoredCard, error)
}

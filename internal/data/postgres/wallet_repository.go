package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gateway-payment-bridge/internal/domain/wallet"
	"github.com/gateway-payment-bridge/internal/platform/persistence"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL stored card repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// AddIfAbsent stores a tokenized card unless the customer already has a card
// with the same masked number and payment product
func (r *WalletRepository) AddIfAbsent(ctx context.Context, card *wallet.StoredCard) (bool, error) {
	query := `
		INSERT INTO stored_cards (customer_no, token, card_holder, masked_card_number, card_expiry, payment_product_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (customer_no, masked_card_number, payment_product_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		card.CustomerNo,
		card.Token,
		card.CardHolder,
		card.MaskedCardNumber,
		card.CardExpiry,
		card.PaymentProductID,
		card.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to store card", "customer_no", card.CustomerNo, "error", err)
		return false, fmt.Errorf("failed to store card: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetByCustomerNo retrieves the customer's stored cards, newest first
func (r *WalletRepository) GetByCustomerNo(ctx context.Context, customerNo string) ([]*wallet.StoredCard, error) {
	query := `
		SELECT customer_no, token, card_holder, masked_card_number, card_expiry, payment_product_id, created_at
		FROM stored_cards
		WHERE customer_no = $1
		ORDER BY created_at DESC
	`

	rows, err := r.querier.Query(ctx, query, customerNo)
	if err != nil {
		r.logger.Error("Failed to get stored cards", "customer_no", customerNo, "error", err)
		return nil, fmt.Errorf("failed to get stored cards: %w", err)
	}
	defer rows.Close()

	var cards []*wallet.StoredCard
	for rows.Next() {
		var card wallet.StoredCard
		if err := rows.Scan(
			&card.CustomerNo,
			&card.Token,
			&card.CardHolder,
			&card.MaskedCardNumber,
			&card.CardExpiry,
			&card.PaymentProductID,
			&card.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stored card: %w", err)
		}
		cards = append(cards, &card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stored cards: %w", err)
	}

	return cards, nil
}

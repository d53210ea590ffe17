package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateway-payment-bridge/internal/domain/wallet"
)

func TestWalletRepository_AddIfAbsent(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: newTestLogger()}

	card := &wallet.StoredCard{
		CustomerNo:       "C0042",
		Token:            "tok_1",
		CardHolder:       "ADA LOVELACE",
		MaskedCardNumber: "456735******7977",
		CardExpiry:       "1229",
		PaymentProductID: 1,
		CreatedAt:        time.Now(),
	}

	t.Run("added", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO stored_cards").
			WithArgs(card.CustomerNo, card.Token, card.CardHolder, card.MaskedCardNumber, card.CardExpiry, card.PaymentProductID, card.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		added, err := repo.AddIfAbsent(ctx, card)
		assert.NoError(t, err)
		assert.True(t, added)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already stored", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO stored_cards").
			WithArgs(card.CustomerNo, card.Token, card.CardHolder, card.MaskedCardNumber, card.CardExpiry, card.PaymentProductID, card.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		added, err := repo.AddIfAbsent(ctx, card)
		assert.NoError(t, err)
		assert.False(t, added)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_GetByCustomerNo(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM stored_cards").
		WithArgs("C0042").
		WillReturnRows(pgxmock.NewRows([]string{
			"customer_no", "token", "card_holder", "masked_card_number", "card_expiry", "payment_product_id", "created_at",
		}).
			AddRow("C0042", "tok_2", "ADA LOVELACE", "411111******1111", "0327", 1, now).
			AddRow("C0042", "tok_1", "ADA LOVELACE", "456735******7977", "1229", 1, now.Add(-time.Hour)))

	cards, err := repo.GetByCustomerNo(ctx, "C0042")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "tok_2", cards[0].Token)
	assert.Equal(t, "tok_1", cards[1].Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

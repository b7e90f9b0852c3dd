package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// cardPaymentRepository implements domain.CardPaymentRepository
type cardPaymentRepository struct {
	db *DB
}

// NewCardPaymentRepository creates a new card payment repository
func NewCardPaymentRepository(db *DB) domain.CardPaymentRepository {
	return &cardPaymentRepository{db: db}
}

// ListPayments retrieves all installment payments across all cards
func (r *cardPaymentRepository) ListPayments(ctx context.Context) ([]*domain.CardPayment, error) {
	query := `
		SELECT p.id, c.name, p.due_date, p.amount, p.rebate_used, p.installment, p.wallet_id, p.payment_date
		FROM card_payments p
		JOIN credit_cards c ON c.id = p.card_id
		ORDER BY p.due_date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list card payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.CardPayment
	for rows.Next() {
		var payment domain.CardPayment
		var amountStr, rebateStr string
		var walletID sql.NullString
		var paymentDate sql.NullTime

		if err := rows.Scan(&payment.ID, &payment.CardName, &payment.DueDate, &amountStr, &rebateStr, &payment.Installment, &walletID, &paymentDate); err != nil {
			return nil, fmt.Errorf("failed to scan card payment: %w", err)
		}

		if payment.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		if payment.RebateUsed, err = decimal.NewFromString(rebateStr); err != nil {
			return nil, fmt.Errorf("failed to parse rebate_used: %w", err)
		}

		if walletID.Valid {
			id, err := uuid.Parse(walletID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse wallet_id: %w", err)
			}
			payment.WalletID = &id
		}
		if paymentDate.Valid {
			payment.PaymentDate = &paymentDate.Time
		}

		payments = append(payments, &payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card payments: %w", err)
	}

	return payments, nil
}

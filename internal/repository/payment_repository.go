package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/booking-api/internal/models"
)

// PaymentRepository handles persistence for payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository instantiates a payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, user_id, amount, status, payment_intent_id, payment_method, created_at, updated_at"

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	const query = `INSERT INTO payments (id, user_id, amount, status, payment_intent_id, payment_method, created_at, updated_at)
		VALUES (:id, :user_id, :amount, :status, :payment_intent_id, :payment_method, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByIntentID loads a payment by its Stripe payment-intent identifier.
func (r *PaymentRepository) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE payment_intent_id = $1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, intentID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatusByIntentID records the outcome reported for an intent.
func (r *PaymentRepository) UpdateStatusByIntentID(ctx context.Context, intentID string, status models.PaymentStatus, method *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET status = $2, payment_method = COALESCE($3, payment_method), updated_at = $4 WHERE payment_intent_id = $1`,
		intentID, status, method, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update payment status: no rows affected")
	}
	return nil
}

// ListByUser returns a patient's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE user_id = $1 ORDER BY created_at DESC", paymentColumns)
	payments := []models.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}
	return payments, nil
}

// ListAll returns every payment for the admin overview.
func (r *PaymentRepository) ListAll(ctx context.Context) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments ORDER BY created_at DESC", paymentColumns)
	payments := []models.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("list all payments: %w", err)
	}
	return payments, nil
}

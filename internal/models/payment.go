package models

import "time"

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// CreatePaymentIntentRequest carries the consultation fee in major currency
// units; the gateway is charged the amount in the smallest unit.
type CreatePaymentIntentRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// ConfirmPaymentRequest records the gateway outcome for an intent.
type ConfirmPaymentRequest struct {
	PaymentIntentID string  `json:"payment_intent_id" validate:"required"`
	Succeeded       bool    `json:"succeeded"`
	PaymentMethod   *string `json:"payment_method,omitempty"`
}

// Payment records a Stripe payment intent raised for a consultation fee.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	Amount          int64         `db:"amount" json:"amount"`
	Status          PaymentStatus `db:"status" json:"status"`
	PaymentIntentID string        `db:"payment_intent_id" json:"payment_intent_id"`
	PaymentMethod   *string       `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

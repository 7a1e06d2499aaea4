package models

import (
	"errors"
	"time"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// paymentTransitions defines the legal payment status transitions. A failed
// payment is terminal for that attempt; a retry is modelled by a new payment
// session, not a status flip.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted, PaymentFailed, PaymentRefunded},
	PaymentCompleted: {PaymentRefunded},
	PaymentFailed:    {},
	PaymentRefunded:  {},
}

// CanTransitionTo returns true if the transition from the current status is legal
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodPayPal     PaymentMethod = "paypal"
)

// Payment represents a payment attempt for an order. One-to-one with its
// order; lifetime-bound to it. SessionID is the external gateway's session
// identifier, used to re-fetch the outcome server-side.
type Payment struct {
	ID        int           `json:"id" db:"id"`
	OrderID   int           `json:"order_id" db:"order_id"`
	SessionID string        `json:"session_id" db:"session_id"`
	Amount    int           `json:"amount" db:"amount"` // in cents
	Status    PaymentStatus `json:"status" db:"status"`
	Method    PaymentMethod `json:"method" db:"method"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// Validate validates the payment data
func (p *Payment) Validate() error {
	if p.OrderID == 0 {
		return errors.New("payment requires an order")
	}

	if p.Amount < 0 {
		return errors.New("amount cannot be negative")
	}

	switch p.Status {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
	default:
		return errors.New("invalid payment status")
	}

	switch p.Method {
	case MethodCreditCard, MethodDebitCard, MethodPayPal:
	default:
		return errors.New("invalid payment method")
	}

	return nil
}

// IsTerminal returns true if no further transitions are possible
func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

// AmountInCurrency returns the amount in the main currency as a float
func (p *Payment) AmountInCurrency() float64 {
	return float64(p.Amount) / 100.0
}

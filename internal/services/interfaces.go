package services

import (
	"context"

	"plant-shop-platform/internal/models"
)

// PaymentSession is an opaque handle to a hosted payment flow created with
// the external gateway.
type PaymentSession struct {
	ID          string
	RedirectURL string
	Amount      int // in cents
}

// PaymentOutcome is the gateway's authoritative answer for a session,
// fetched server-side by session identifier.
type PaymentOutcome struct {
	SessionID string
	Paid      bool
	OrderID   int
	Amount    int // in cents
}

// PaymentServiceInterface defines the interface for payment gateway adapters
type PaymentServiceInterface interface {
	CreateSession(ctx context.Context, order *models.Order) (*PaymentSession, error)
	FinalizeSession(ctx context.Context, sessionID string) (*PaymentOutcome, error)
}

// EmailServiceInterface defines the interface for transactional email
// dispatchers. SendOrderConfirmation must return
// models.ErrRecipientNotVerified when the provider requires the recipient to
// verify first; implementations trigger the verification as a side effect.
type EmailServiceInterface interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	RequestVerification(ctx context.Context, email string) error
}

// CheckoutServiceInterface defines the interface for the checkout flow
type CheckoutServiceInterface interface {
	Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*ConfirmationResult, error)
	RetryPayment(ctx context.Context, orderID int) (*CheckoutResult, error)
	CancelPayment(orderID int) error
	ResendConfirmation(ctx context.Context, orderID int) error
}

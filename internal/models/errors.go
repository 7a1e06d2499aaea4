package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")

	// Checkout outcomes the orchestrator matches on
	ErrEmptyCart             = errors.New("cart is empty")
	ErrOrderPersistence      = errors.New("order could not be persisted")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrGatewayRejected       = errors.New("payment gateway rejected the request")
	ErrPaymentOutcomeUnknown = errors.New("payment outcome unknown")
	ErrRecipientNotVerified  = errors.New("recipient email address not verified")
	ErrNotificationGateway   = errors.New("notification gateway error")
)

// InsufficientStockError reports which plant could not be reserved so the
// customer sees exactly which item is short.
type InsufficientStockError struct {
	PlantID   int
	PlantName string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.PlantName != "" {
		return fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)",
			e.PlantName, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for plant %d (requested: %d, available: %d)",
		e.PlantID, e.Requested, e.Available)
}

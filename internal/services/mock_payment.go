package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"plant-shop-platform/internal/config"
	"plant-shop-platform/internal/models"
)

// MockPaymentService provides a payment service that delegates to Stripe
// when credentials are configured and otherwise simulates the gateway
// in-process. The mock keeps its sessions in memory so the confirmation
// callback path can be exercised end to end without network access.
type MockPaymentService struct {
	stripeService *StripePaymentService
	useStripe     bool

	mu       sync.Mutex
	sessions map[string]*mockSession
	seq      int
	// Outcome assigned to newly created mock sessions; paid by default.
	NextOutcomePaid bool
}

type mockSession struct {
	orderID int
	amount  int
	paid    bool
}

// NewMockPaymentService creates a new mock payment service with Stripe support
func NewMockPaymentService(stripeConfig *config.StripeConfig) *MockPaymentService {
	service := &MockPaymentService{
		sessions:        make(map[string]*mockSession),
		NextOutcomePaid: true,
	}

	if stripeConfig != nil && stripeConfig.SecretKey != "" {
		service.stripeService = NewStripePaymentService(StripeConfig{
			SecretKey:  stripeConfig.SecretKey,
			PublicKey:  stripeConfig.PublicKey,
			SuccessURL: stripeConfig.SuccessURL,
			CancelURL:  stripeConfig.CancelURL,
			Currency:   stripeConfig.Currency,
		})
		service.useStripe = true
		log.Println("Payment service: Using Stripe API")
	} else {
		log.Println("Payment service: Using mock (no Stripe secret key provided)")
	}

	return service
}

// CreateSession creates a payment session
func (s *MockPaymentService) CreateSession(ctx context.Context, order *models.Order) (*PaymentSession, error) {
	if s.useStripe && s.stripeService != nil {
		return s.stripeService.CreateSession(ctx, order)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	sessionID := fmt.Sprintf("mock_cs_%d_%d", order.ID, s.seq)
	s.sessions[sessionID] = &mockSession{
		orderID: order.ID,
		amount:  order.TotalPrice,
		paid:    s.NextOutcomePaid,
	}

	log.Printf("Mock Payment: session %s created for order %s (€%.2f)",
		sessionID, order.OrderNumber, order.TotalPriceInCurrency())

	return &PaymentSession{
		ID:          sessionID,
		RedirectURL: fmt.Sprintf("http://localhost:8080/checkout/payment/completed?session_id=%s", sessionID),
		Amount:      order.TotalPrice,
	}, nil
}

// FinalizeSession resolves a payment session's outcome
func (s *MockPaymentService) FinalizeSession(ctx context.Context, sessionID string) (*PaymentOutcome, error) {
	if s.useStripe && s.stripeService != nil {
		return s.stripeService.FinalizeSession(ctx, sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown session %s", models.ErrGatewayRejected, sessionID)
	}

	return &PaymentOutcome{
		SessionID: sessionID,
		Paid:      session.paid,
		OrderID:   session.orderID,
		Amount:    session.amount,
	}, nil
}

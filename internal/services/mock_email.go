package services

import (
	"context"
	"log"
	"strings"
	"sync"

	"plant-shop-platform/internal/config"
	"plant-shop-platform/internal/models"
)

// MockEmailService provides an email service that delegates to SES when
// credentials are configured and otherwise simulates the provider's
// verified-address registry in memory.
type MockEmailService struct {
	sesService *SESEmailService
	useSES     bool

	mu       sync.Mutex
	verified map[string]bool
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService(ctx context.Context, sesConfig *config.SESConfig) *MockEmailService {
	service := &MockEmailService{
		verified: make(map[string]bool),
	}

	if sesConfig != nil && sesConfig.AccessKeyID != "" {
		sesService, err := NewSESEmailService(ctx, SESConfig{
			Region:          sesConfig.Region,
			AccessKeyID:     sesConfig.AccessKeyID,
			SecretAccessKey: sesConfig.SecretAccessKey,
			SenderEmail:     sesConfig.SenderEmail,
			SenderName:      sesConfig.SenderName,
		})
		if err != nil {
			log.Printf("Email service: SES setup failed, falling back to mock: %v", err)
		} else {
			service.sesService = sesService
			service.useSES = true
			log.Println("Email service: Using Amazon SES")
		}
	}

	if !service.useSES {
		log.Println("Email service: Using mock (no AWS credentials provided)")
	}

	return service
}

// MarkVerified marks an address as verified in the mock registry
func (s *MockEmailService) MarkVerified(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[strings.ToLower(email)] = true
}

// SendOrderConfirmation sends the order confirmation email
func (s *MockEmailService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if s.useSES && s.sesService != nil {
		return s.sesService.SendOrderConfirmation(ctx, order)
	}

	s.mu.Lock()
	verified := s.verified[strings.ToLower(order.Email)]
	s.mu.Unlock()

	if !verified {
		log.Printf("Mock Email: %s not verified, verification requested", order.Email)
		return models.ErrRecipientNotVerified
	}

	log.Printf("Mock Email: order confirmation sent to %s for order %s", order.Email, order.OrderNumber)
	return nil
}

// RequestVerification requests address verification from the provider
func (s *MockEmailService) RequestVerification(ctx context.Context, email string) error {
	if s.useSES && s.sesService != nil {
		return s.sesService.RequestVerification(ctx, email)
	}

	log.Printf("Mock Email: verification email sent to %s", email)
	return nil
}

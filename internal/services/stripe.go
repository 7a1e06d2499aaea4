package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"plant-shop-platform/internal/models"
)

// StripeConfig represents Stripe payment service configuration
type StripeConfig struct {
	SecretKey  string
	PublicKey  string
	SuccessURL string
	CancelURL  string
	Currency   string
}

// StripePaymentService drives hosted Stripe Checkout sessions. It never
// trusts redirect query parameters: the payment outcome is always re-fetched
// by session identifier.
type StripePaymentService struct {
	config  StripeConfig
	client  *http.Client
	baseURL string
}

// NewStripePaymentService creates a new Stripe payment service
func NewStripePaymentService(config StripeConfig) *StripePaymentService {
	if config.Currency == "" {
		config.Currency = "eur"
	}

	return &StripePaymentService{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.stripe.com/v1",
	}
}

// stripeSessionResponse represents a checkout session returned by Stripe
type stripeSessionResponse struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int               `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

// stripeErrorResponse represents an error returned by Stripe
type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession requests a hosted checkout flow for the order. Line items
// are built from the order's locked prices, one entry per item, with unit
// amounts in cents.
func (s *StripePaymentService) CreateSession(ctx context.Context, order *models.Order) (*PaymentSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", s.config.SuccessURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", s.config.CancelURL)
	form.Set("metadata[order_id]", strconv.Itoa(order.ID))
	form.Set("metadata[order_number]", order.OrderNumber)
	form.Set("payment_method_types[0]", "card")

	for i, item := range order.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", s.config.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.Itoa(item.UnitPrice))
		form.Set(prefix+"[price_data][product_data][name]", item.PlantName)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}

	var session stripeSessionResponse
	if err := s.post(ctx, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}

	return &PaymentSession{
		ID:          session.ID,
		RedirectURL: session.URL,
		Amount:      session.AmountTotal,
	}, nil
}

// FinalizeSession re-queries the gateway for the session's payment status.
// This is the anti-spoofing check: the caller's redirect parameters carry
// only the session identifier, and the verdict comes from here.
func (s *StripePaymentService) FinalizeSession(ctx context.Context, sessionID string) (*PaymentOutcome, error) {
	var session stripeSessionResponse
	if err := s.get(ctx, "/checkout/sessions/"+url.PathEscape(sessionID), &session); err != nil {
		return nil, err
	}

	orderID, err := strconv.Atoi(session.Metadata["order_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: session %s carries no order reference", models.ErrGatewayRejected, sessionID)
	}

	return &PaymentOutcome{
		SessionID: session.ID,
		Paid:      session.PaymentStatus == "paid",
		OrderID:   orderID,
		Amount:    session.AmountTotal,
	}, nil
}

func (s *StripePaymentService) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.do(req, out)
}

func (s *StripePaymentService) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return s.do(req, out)
}

func (s *StripePaymentService) do(req *http.Request, out interface{}) error {
	req.SetBasicAuth(s.config.SecretKey, "")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", models.ErrGatewayUnavailable, resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		var gatewayErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&gatewayErr); err == nil && gatewayErr.Error.Message != "" {
			return fmt.Errorf("%w: %s", models.ErrGatewayRejected, gatewayErr.Error.Message)
		}
		return fmt.Errorf("%w: gateway returned %d", models.ErrGatewayRejected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"plant-shop-platform/internal/models"
	"plant-shop-platform/internal/repositories"
)

// CheckoutService orchestrates the checkout flow: cart snapshot, inventory
// reservation, order creation, payment session, and confirmation. Failures
// before the order is durably created are compensated by releasing
// reservations; from order creation onward the order is the customer-visible
// commitment point and inventory stays committed to it until the order is
// explicitly cancelled.
type CheckoutService struct {
	cartRepo       CartRepository
	inventoryRepo  InventoryLedger
	orderRepo      OrderRepository
	paymentRepo    PaymentRepository
	paymentService PaymentServiceInterface
	emailService   EmailServiceInterface
	gatewayTimeout time.Duration
}

// CartRepository interface for cart data operations
type CartRepository interface {
	Snapshot(owner models.CartOwner) ([]models.CartLineDetail, error)
	Clear(owner models.CartOwner) error
}

// InventoryLedger interface for atomic stock operations
type InventoryLedger interface {
	Reserve(plantID, quantity int) (*repositories.Reservation, error)
	Release(plantID, quantity int) error
}

// OrderRepository interface for order data operations
type OrderRepository interface {
	Create(req *repositories.OrderCreateRequest) (*models.Order, error)
	GetByID(id int) (*models.Order, error)
	UpdateStatus(id int, status models.OrderStatus) error
}

// PaymentRepository interface for payment data operations
type PaymentRepository interface {
	Create(orderID int, sessionID string, amount int, method models.PaymentMethod) (*models.Payment, error)
	GetByOrder(orderID int) (*models.Payment, error)
	GetBySessionID(sessionID string) (*models.Payment, error)
	UpdateStatus(id int, status models.PaymentStatus) error
	MarkFailedByOrder(orderID int) error
	Replace(orderID int, sessionID string, amount int, method models.PaymentMethod) (*models.Payment, error)
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	cartRepo CartRepository,
	inventoryRepo InventoryLedger,
	orderRepo OrderRepository,
	paymentRepo PaymentRepository,
	paymentService PaymentServiceInterface,
	emailService EmailServiceInterface,
	gatewayTimeout time.Duration,
) *CheckoutService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &CheckoutService{
		cartRepo:       cartRepo,
		inventoryRepo:  inventoryRepo,
		orderRepo:      orderRepo,
		paymentRepo:    paymentRepo,
		paymentService: paymentService,
		emailService:   emailService,
		gatewayTimeout: gatewayTimeout,
	}
}

// CheckoutRequest represents a checkout attempt for one cart
type CheckoutRequest struct {
	Owner    models.CartOwner
	UserID   int
	Customer models.CustomerDetails
	Method   models.PaymentMethod
}

// CheckoutResult is the outcome of a checkout attempt. Warning carries
// failures that happened after the order became durable: the order stands,
// and the caller should offer a payment retry rather than treat the checkout
// as failed.
type CheckoutResult struct {
	Order       *models.Order
	Payment     *models.Payment
	RedirectURL string
	Warning     error
}

// ConfirmationResult is the outcome of resolving a payment session
type ConfirmationResult struct {
	Order   *models.Order
	Payment *models.Payment
	Paid    bool
	Warning error
}

// Checkout runs the checkout flow for the owner's cart. Prices and
// quantities are fixed by a single cart snapshot; reservation failures
// release everything acquired in this pass and report exactly which plant is
// short.
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := req.Customer.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Snapshot the cart; this fixes prices for the rest of the flow.
	lines, err := s.cartRepo.Snapshot(req.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}

	if len(lines) == 0 {
		return nil, models.ErrEmptyCart
	}

	// Reserve stock line by line; on failure release what this pass already
	// took, in reverse order.
	reserved, err := s.reserveLines(lines)
	if err != nil {
		return nil, err
	}

	items := make([]repositories.OrderItemInput, len(lines))
	total := 0
	for i, line := range lines {
		items[i] = repositories.OrderItemInput{
			PlantID:   line.PlantID,
			PlantName: line.PlantName,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
		total += line.Subtotal()
	}

	order, err := s.orderRepo.Create(&repositories.OrderCreateRequest{
		UserID:     req.UserID,
		Customer:   req.Customer,
		Items:      items,
		TotalPrice: total,
	})
	if err != nil {
		s.releaseReservations(reserved)
		return nil, fmt.Errorf("%w: %v", models.ErrOrderPersistence, err)
	}

	// Clear the cart only now that the order is durable; a crash before this
	// point leaves the customer's selection intact for a retry.
	if err := s.cartRepo.Clear(req.Owner); err != nil {
		log.Printf("Warning: failed to clear cart after order %s: %v", order.OrderNumber, err)
	}

	payment, redirectURL, warning := s.openPaymentSession(ctx, order, req.Method, false)

	return &CheckoutResult{
		Order:       order,
		Payment:     payment,
		RedirectURL: redirectURL,
		Warning:     warning,
	}, nil
}

// reserveLines reserves inventory for every line or nothing at all
func (s *CheckoutService) reserveLines(lines []models.CartLineDetail) ([]*repositories.Reservation, error) {
	var reserved []*repositories.Reservation
	for _, line := range lines {
		reservation, err := s.inventoryRepo.Reserve(line.PlantID, line.Quantity)
		if err != nil {
			s.releaseReservations(reserved)
			return nil, err
		}
		reserved = append(reserved, reservation)
	}
	return reserved, nil
}

// releaseReservations compensates reservations in reverse order. Each
// reservation is released exactly once; a release failure is logged and the
// remaining releases still run.
func (s *CheckoutService) releaseReservations(reserved []*repositories.Reservation) {
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if err := s.inventoryRepo.Release(r.PlantID, r.Quantity); err != nil {
			log.Printf("Warning: failed to release %d units of plant %d: %v", r.Quantity, r.PlantID, err)
		}
	}
}

// openPaymentSession creates the external session first and only then the
// payment record, so a committed payment row never lacks a gateway session.
// Errors are returned as warnings: the order already stands and inventory
// stays committed to it, awaiting a payment retry or cancellation.
func (s *CheckoutService) openPaymentSession(ctx context.Context, order *models.Order, method models.PaymentMethod, replace bool) (*models.Payment, string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	session, err := s.paymentService.CreateSession(gctx, order)
	if err != nil {
		return nil, "", err
	}

	var payment *models.Payment
	if replace {
		payment, err = s.paymentRepo.Replace(order.ID, session.ID, order.TotalPrice, method)
	} else {
		payment, err = s.paymentRepo.Create(order.ID, session.ID, order.TotalPrice, method)
	}
	if err != nil {
		// Withhold the redirect: a customer must never be sent to pay into a
		// session no payment row tracks. The retry path mints a fresh one.
		return nil, "", fmt.Errorf("failed to record payment for order %s: %w", order.OrderNumber, err)
	}

	return payment, session.RedirectURL, nil
}

// ConfirmPayment resolves a payment session from the confirmation callback
// path. The outcome is always re-fetched from the gateway by session
// identifier; a client-supplied success flag is never trusted. A paid
// outcome completes the payment, moves the order to processing, and sends
// the confirmation email best-effort; an unpaid outcome fails the payment
// and leaves the order pending with its stock still committed.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, sessionID string) (*ConfirmationResult, error) {
	payment, err := s.paymentRepo.GetBySessionID(sessionID)
	if err != nil {
		return nil, err
	}

	// Callbacks replay; a payment already completed stays completed.
	if payment.Status == models.PaymentCompleted {
		order, err := s.orderRepo.GetByID(payment.OrderID)
		if err != nil {
			return nil, err
		}
		return &ConfirmationResult{Order: order, Payment: payment, Paid: true}, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	outcome, err := s.paymentService.FinalizeSession(gctx, sessionID)
	if err != nil {
		// Unknown outcome: change nothing and let a later callback or the
		// reconciliation sweep resolve it.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", models.ErrPaymentOutcomeUnknown, err)
		}
		return nil, err
	}

	order, err := s.orderRepo.GetByID(payment.OrderID)
	if err != nil {
		return nil, err
	}

	if !outcome.Paid {
		if payment.Status != models.PaymentFailed {
			if err := s.paymentRepo.UpdateStatus(payment.ID, models.PaymentFailed); err != nil {
				return nil, err
			}
			payment.Status = models.PaymentFailed
		}
		return &ConfirmationResult{Order: order, Payment: payment}, nil
	}

	if err := s.paymentRepo.UpdateStatus(payment.ID, models.PaymentCompleted); err != nil {
		return nil, err
	}
	payment.Status = models.PaymentCompleted

	if err := s.orderRepo.UpdateStatus(order.ID, models.OrderProcessing); err != nil {
		return nil, err
	}
	order.Status = models.OrderProcessing

	// Best-effort confirmation email. The purchase is already fulfilled
	// financially, so a failure here is a warning, never a rollback.
	warning := s.emailService.SendOrderConfirmation(ctx, order)
	if warning != nil {
		log.Printf("Warning: confirmation email for order %s: %v", order.OrderNumber, warning)
	}

	return &ConfirmationResult{
		Order:   order,
		Payment: payment,
		Paid:    true,
		Warning: warning,
	}, nil
}

// RetryPayment opens a fresh payment session for a pending order whose
// previous attempt failed, without re-reserving stock or re-creating the
// order.
func (s *CheckoutService) RetryPayment(ctx context.Context, orderID int) (*CheckoutResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderPending {
		return nil, fmt.Errorf("order %s is not awaiting payment", order.OrderNumber)
	}

	method := models.MethodCreditCard
	existing, err := s.paymentRepo.GetByOrder(orderID)
	if err == nil {
		if existing.Status != models.PaymentFailed {
			return nil, fmt.Errorf("payment for order %s is %s, not retryable", order.OrderNumber, existing.Status)
		}
		method = existing.Method
	} else if !errors.Is(err, models.ErrPaymentNotFound) {
		return nil, err
	}

	payment, redirectURL, warning := s.openPaymentSession(ctx, order, method, existing != nil)
	if payment == nil && warning != nil {
		return nil, warning
	}

	return &CheckoutResult{
		Order:       order,
		Payment:     payment,
		RedirectURL: redirectURL,
		Warning:     warning,
	}, nil
}

// CancelPayment handles the gateway's cancel redirect: the payment attempt,
// if one exists, is marked failed. The order and its reserved stock are left
// alone for a retry or an explicit cancellation.
func (s *CheckoutService) CancelPayment(orderID int) error {
	return s.paymentRepo.MarkFailedByOrder(orderID)
}

// ResendConfirmation retries the confirmation email for an order whose
// recipient has since verified their address.
func (s *CheckoutService) ResendConfirmation(ctx context.Context, orderID int) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}

	return s.emailService.SendOrderConfirmation(ctx, order)
}

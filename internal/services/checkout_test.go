package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"plant-shop-platform/internal/models"
	"plant-shop-platform/internal/repositories"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCart serves a fixed snapshot and records clears
type fakeCart struct {
	mu       sync.Mutex
	lines    []models.CartLineDetail
	cleared  int
	snapErr  error
	clearErr error
}

func (f *fakeCart) Snapshot(owner models.CartOwner) ([]models.CartLineDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.lines, nil
}

func (f *fakeCart) Clear(owner models.CartOwner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared++
	f.lines = nil
	return nil
}

// fakeLedger mirrors the conditional-decrement semantics of the real
// inventory repository
type fakeLedger struct {
	mu    sync.Mutex
	stock map[int]int
	names map[int]string
}

func newFakeLedger(stock map[int]int) *fakeLedger {
	names := make(map[int]string)
	for id := range stock {
		names[id] = fmt.Sprintf("plant-%d", id)
	}
	return &fakeLedger{stock: stock, names: names}
}

func (f *fakeLedger) Reserve(plantID, quantity int) (*repositories.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if quantity < 1 {
		return nil, models.ErrInvalidQuantity
	}
	available, ok := f.stock[plantID]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	if available < quantity {
		return nil, &models.InsufficientStockError{
			PlantID:   plantID,
			PlantName: f.names[plantID],
			Requested: quantity,
			Available: available,
		}
	}
	f.stock[plantID] = available - quantity
	return &repositories.Reservation{PlantID: plantID, Quantity: quantity, PriorStock: available}, nil
}

func (f *fakeLedger) Release(plantID, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if quantity == 0 {
		return nil
	}
	if quantity < 0 {
		return models.ErrInvalidQuantity
	}
	if _, ok := f.stock[plantID]; !ok {
		return models.ErrProductNotFound
	}
	f.stock[plantID] += quantity
	return nil
}

func (f *fakeLedger) level(plantID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[plantID]
}

// fakeOrders stores orders in memory and enforces status transitions
type fakeOrders struct {
	mu        sync.Mutex
	nextID    int
	orders    map[int]*models.Order
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{nextID: 1, orders: make(map[int]*models.Order)}
}

func (f *fakeOrders) Create(req *repositories.OrderCreateRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	order := &models.Order{
		ID:          f.nextID,
		UserID:      req.UserID,
		OrderNumber: models.GenerateOrderNumber(),
		FirstName:   req.Customer.FirstName,
		LastName:    req.Customer.LastName,
		Email:       req.Customer.Email,
		Status:      models.OrderPending,
		TotalPrice:  req.TotalPrice,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   order.ID,
			PlantID:   item.PlantID,
			PlantName: item.PlantName,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	f.orders[order.ID] = order
	f.nextID++
	return order, nil
}

func (f *fakeOrders) GetByID(id int) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrders) UpdateStatus(id int, status models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(status) {
		return fmt.Errorf("cannot transition order from %s to %s", order.Status, status)
	}
	order.Status = status
	return nil
}

// fakePayments enforces the one-payment-per-order contract and legal
// transitions, like the real repository
type fakePayments struct {
	mu        sync.Mutex
	nextID    int
	byOrder   map[int]*models.Payment
	createErr error
}

func newFakePayments() *fakePayments {
	return &fakePayments{nextID: 1, byOrder: make(map[int]*models.Payment)}
}

func (f *fakePayments) Create(orderID int, sessionID string, amount int, method models.PaymentMethod) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.byOrder[orderID]; exists {
		return nil, fmt.Errorf("payment already exists for order %d", orderID)
	}
	payment := &models.Payment{
		ID:        f.nextID,
		OrderID:   orderID,
		SessionID: sessionID,
		Amount:    amount,
		Status:    models.PaymentPending,
		Method:    method,
	}
	f.byOrder[orderID] = payment
	f.nextID++
	return payment, nil
}

func (f *fakePayments) GetByOrder(orderID int) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.byOrder[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrPaymentNotFound)
	}
	copied := *payment
	return &copied, nil
}

func (f *fakePayments) GetBySessionID(sessionID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, payment := range f.byOrder {
		if payment.SessionID == sessionID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, models.ErrPaymentNotFound
}

func (f *fakePayments) UpdateStatus(id int, status models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, payment := range f.byOrder {
		if payment.ID != id {
			continue
		}
		if !payment.Status.CanTransitionTo(status) {
			return fmt.Errorf("cannot transition payment from %s to %s", payment.Status, status)
		}
		payment.Status = status
		return nil
	}
	return models.ErrPaymentNotFound
}

func (f *fakePayments) MarkFailedByOrder(orderID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.byOrder[orderID]
	if !ok {
		return nil
	}
	if payment.Status.IsTerminal() || payment.Status == models.PaymentCompleted {
		return nil
	}
	payment.Status = models.PaymentFailed
	return nil
}

func (f *fakePayments) Replace(orderID int, sessionID string, amount int, method models.PaymentMethod) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byOrder[orderID]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	if existing.Status != models.PaymentFailed {
		return nil, fmt.Errorf("payment for order %d is %s, not replaceable", orderID, existing.Status)
	}
	payment := &models.Payment{
		ID:        f.nextID,
		OrderID:   orderID,
		SessionID: sessionID,
		Amount:    amount,
		Status:    models.PaymentPending,
		Method:    method,
	}
	f.byOrder[orderID] = payment
	f.nextID++
	return payment, nil
}

// fakeGateway scripts session creation and finalization outcomes
type fakeGateway struct {
	mu          sync.Mutex
	nextSession int
	createErr   error
	finalizeErr error
	paid        bool
	finalized   map[string]int
}

func newFakeGateway(paid bool) *fakeGateway {
	return &fakeGateway{paid: paid, finalized: make(map[string]int)}
}

func (f *fakeGateway) CreateSession(ctx context.Context, order *models.Order) (*PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextSession++
	id := fmt.Sprintf("cs_test_%d", f.nextSession)
	return &PaymentSession{
		ID:          id,
		RedirectURL: "https://gateway.example.com/pay/" + id,
		Amount:      order.TotalPrice,
	}, nil
}

func (f *fakeGateway) FinalizeSession(ctx context.Context, sessionID string) (*PaymentOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized[sessionID]++
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	return &PaymentOutcome{SessionID: sessionID, Paid: f.paid}, nil
}

// fakeMailer records confirmation sends
type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (f *fakeMailer) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, order.OrderNumber)
	return nil
}

func (f *fakeMailer) RequestVerification(ctx context.Context, email string) error {
	return nil
}

type checkoutFixture struct {
	cart     *fakeCart
	ledger   *fakeLedger
	orders   *fakeOrders
	payments *fakePayments
	gateway  *fakeGateway
	mailer   *fakeMailer
	service  *CheckoutService
}

func newCheckoutFixture(lines []models.CartLineDetail, stock map[int]int, paid bool) *checkoutFixture {
	f := &checkoutFixture{
		cart:     &fakeCart{lines: lines},
		ledger:   newFakeLedger(stock),
		orders:   newFakeOrders(),
		payments: newFakePayments(),
		gateway:  newFakeGateway(paid),
		mailer:   &fakeMailer{},
	}
	f.service = NewCheckoutService(f.cart, f.ledger, f.orders, f.payments, f.gateway, f.mailer, time.Second)
	return f
}

func validCustomer() models.CustomerDetails {
	return models.CustomerDetails{
		FirstName:    "Aoife",
		LastName:     "Byrne",
		Email:        "aoife@example.com",
		Phone:        "0851234567",
		AddressLine1: "12 Botanic Road",
		TownOrCity:   "Dublin",
		County:       "Dublin",
	}
}

func twoLineCart() []models.CartLineDetail {
	return []models.CartLineDetail{
		{PlantID: 1, PlantName: "Monstera", UnitPrice: 3499, Quantity: 2},
		{PlantID: 2, PlantName: "Pothos", UnitPrice: 1499, Quantity: 1},
	}
}

func TestCheckout_Success(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)

	result, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if result.Warning != nil {
		t.Fatalf("Checkout() warning = %v", result.Warning)
	}

	if result.Order.Status != models.OrderPending {
		t.Errorf("order status = %s, want pending", result.Order.Status)
	}
	wantTotal := 3499*2 + 1499
	if result.Order.TotalPrice != wantTotal {
		t.Errorf("order total = %d, want %d", result.Order.TotalPrice, wantTotal)
	}
	if result.Payment == nil || result.Payment.Status != models.PaymentPending {
		t.Errorf("payment = %+v, want pending payment", result.Payment)
	}
	if result.Payment.Amount != wantTotal {
		t.Errorf("payment amount = %d, want %d", result.Payment.Amount, wantTotal)
	}
	if result.RedirectURL == "" {
		t.Error("expected a gateway redirect URL")
	}

	if got := f.ledger.level(1); got != 3 {
		t.Errorf("plant 1 stock = %d, want 3", got)
	}
	if got := f.ledger.level(2); got != 4 {
		t.Errorf("plant 2 stock = %d, want 4", got)
	}
	if f.cart.cleared != 1 {
		t.Errorf("cart cleared %d times, want 1", f.cart.cleared)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(nil, map[int]int{}, true)

	_, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})
	if !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("Checkout() error = %v, want ErrEmptyCart", err)
	}
}

func TestCheckout_InsufficientStockReleasesEarlierLines(t *testing.T) {
	// Plant 1 reserves fine; plant 2 is short, so the plant 1 reservation
	// must be released and nothing else may change.
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 0}, true)

	_, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})

	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Checkout() error = %v, want InsufficientStockError", err)
	}
	if stockErr.PlantID != 2 || stockErr.Requested != 1 || stockErr.Available != 0 {
		t.Errorf("stock error = %+v", stockErr)
	}

	if got := f.ledger.level(1); got != 5 {
		t.Errorf("plant 1 stock = %d, want 5 after compensation", got)
	}
	if f.cart.cleared != 0 {
		t.Error("cart must not be cleared on a failed checkout")
	}
	if len(f.orders.orders) != 0 {
		t.Error("no order may exist after a failed reservation")
	}
}

func TestCheckout_OrderPersistenceFailureCompensates(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	f.orders.createErr = errors.New("connection reset")

	_, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})
	if !errors.Is(err, models.ErrOrderPersistence) {
		t.Fatalf("Checkout() error = %v, want ErrOrderPersistence", err)
	}

	if got := f.ledger.level(1); got != 5 {
		t.Errorf("plant 1 stock = %d, want 5 after compensation", got)
	}
	if got := f.ledger.level(2); got != 5 {
		t.Errorf("plant 2 stock = %d, want 5 after compensation", got)
	}
	if f.cart.cleared != 0 {
		t.Error("cart must not be cleared when order creation fails")
	}
}

func TestCheckout_GatewayFailureLeavesOrderStanding(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	f.gateway.createErr = models.ErrGatewayUnavailable

	result, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v, want order with warning", err)
	}
	if result.Warning == nil {
		t.Fatal("expected a warning when the payment session cannot be opened")
	}
	if result.Order == nil || result.Order.Status != models.OrderPending {
		t.Errorf("order = %+v, want a pending order", result.Order)
	}
	if result.Payment != nil {
		t.Error("no payment row may exist without a gateway session")
	}

	// Stock stays committed to the order awaiting a payment retry
	if got := f.ledger.level(1); got != 3 {
		t.Errorf("plant 1 stock = %d, want 3", got)
	}
}

func TestCheckout_PaymentRecordFailureWithholdsRedirect(t *testing.T) {
	// The gateway session opens but the payment row cannot be written. The
	// customer must not be handed a redirect into a session nothing tracks;
	// the retry path opens a fresh one.
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	f.payments.createErr = errors.New("payments table unavailable")

	result, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v, want order with warning", err)
	}
	if result.Warning == nil {
		t.Fatal("expected a warning when the payment record cannot be written")
	}
	if result.Payment != nil {
		t.Errorf("payment = %+v, want nil", result.Payment)
	}
	if result.RedirectURL != "" {
		t.Errorf("redirect URL = %q, want empty without a payment row behind it", result.RedirectURL)
	}
	if result.Order == nil || result.Order.Status != models.OrderPending {
		t.Errorf("order = %+v, want a pending order awaiting retry", result.Order)
	}
}

func TestCheckout_InvalidCustomer(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)

	customer := validCustomer()
	customer.Email = "nope"
	_, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: customer,
		Method:   models.MethodCreditCard,
	})
	if err == nil {
		t.Fatal("Checkout() accepted an invalid email")
	}
	if got := f.ledger.level(1); got != 5 {
		t.Error("validation failures must not touch stock")
	}
}

func checkoutOrder(t *testing.T, f *checkoutFixture) *CheckoutResult {
	t.Helper()
	result, err := f.service.Checkout(context.Background(), &CheckoutRequest{
		Owner:    models.SessionOwner("tok"),
		Customer: validCustomer(),
		Method:   models.MethodCreditCard,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	return result
}

func TestConfirmPayment_Paid(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)

	result, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !result.Paid {
		t.Fatal("expected a paid outcome")
	}
	if result.Payment.Status != models.PaymentCompleted {
		t.Errorf("payment status = %s, want completed", result.Payment.Status)
	}
	if result.Order.Status != models.OrderProcessing {
		t.Errorf("order status = %s, want processing", result.Order.Status)
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("confirmation emails sent = %d, want 1", len(f.mailer.sent))
	}
}

func TestConfirmPayment_Unpaid(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, false)
	placed := checkoutOrder(t, f)

	result, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if result.Paid {
		t.Fatal("expected an unpaid outcome")
	}
	if result.Payment.Status != models.PaymentFailed {
		t.Errorf("payment status = %s, want failed", result.Payment.Status)
	}
	if result.Order.Status != models.OrderPending {
		t.Errorf("order status = %s, want pending", result.Order.Status)
	}
	if len(f.mailer.sent) != 0 {
		t.Error("no confirmation email may be sent for an unpaid outcome")
	}
	// Stock stays committed for a retry
	if got := f.ledger.level(1); got != 3 {
		t.Errorf("plant 1 stock = %d, want 3", got)
	}
}

func TestConfirmPayment_UnknownSession(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)

	_, err := f.service.ConfirmPayment(context.Background(), "cs_forged")
	if !errors.Is(err, models.ErrPaymentNotFound) {
		t.Fatalf("ConfirmPayment() error = %v, want ErrPaymentNotFound", err)
	}
}

func TestConfirmPayment_TimeoutChangesNothing(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)
	f.gateway.finalizeErr = context.DeadlineExceeded

	_, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID)
	if !errors.Is(err, models.ErrPaymentOutcomeUnknown) {
		t.Fatalf("ConfirmPayment() error = %v, want ErrPaymentOutcomeUnknown", err)
	}

	payment, _ := f.payments.GetByOrder(placed.Order.ID)
	if payment.Status != models.PaymentPending {
		t.Errorf("payment status = %s, want pending after unknown outcome", payment.Status)
	}
	order, _ := f.orders.GetByID(placed.Order.ID)
	if order.Status != models.OrderPending {
		t.Errorf("order status = %s, want pending after unknown outcome", order.Status)
	}
}

func TestConfirmPayment_ReplayedCallbackIsIdempotent(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)

	if _, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID); err != nil {
		t.Fatalf("first ConfirmPayment() error = %v", err)
	}
	result, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID)
	if err != nil {
		t.Fatalf("replayed ConfirmPayment() error = %v", err)
	}
	if !result.Paid || result.Payment.Status != models.PaymentCompleted {
		t.Errorf("replay result = %+v, want completed", result.Payment)
	}

	// The replay must not hit the gateway again or resend the email
	if got := f.gateway.finalized[placed.Payment.SessionID]; got != 1 {
		t.Errorf("gateway finalized %d times, want 1", got)
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("confirmation emails sent = %d, want 1", len(f.mailer.sent))
	}
}

func TestConfirmPayment_EmailFailureIsWarning(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)
	f.mailer.sendErr = models.ErrRecipientNotVerified

	result, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !result.Paid {
		t.Fatal("payment must complete even when the email fails")
	}
	if !errors.Is(result.Warning, models.ErrRecipientNotVerified) {
		t.Errorf("warning = %v, want ErrRecipientNotVerified", result.Warning)
	}
	if result.Order.Status != models.OrderProcessing {
		t.Errorf("order status = %s, want processing", result.Order.Status)
	}
}

func TestRetryPayment(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, false)
	placed := checkoutOrder(t, f)

	// Fail the first attempt via the confirmation path
	if _, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID); err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}

	result, err := f.service.RetryPayment(context.Background(), placed.Order.ID)
	if err != nil {
		t.Fatalf("RetryPayment() error = %v", err)
	}
	if result.Payment.Status != models.PaymentPending {
		t.Errorf("new payment status = %s, want pending", result.Payment.Status)
	}
	if result.Payment.SessionID == placed.Payment.SessionID {
		t.Error("retry must open a fresh gateway session")
	}
	if result.RedirectURL == "" {
		t.Error("expected a redirect URL for the new session")
	}

	// Still exactly one payment per order
	payment, err := f.payments.GetByOrder(placed.Order.ID)
	if err != nil {
		t.Fatalf("GetByOrder() error = %v", err)
	}
	if payment.SessionID != result.Payment.SessionID {
		t.Error("the failed payment must be replaced, not kept alongside")
	}

	// Retry never touches stock
	if got := f.ledger.level(1); got != 3 {
		t.Errorf("plant 1 stock = %d, want 3", got)
	}
}

func TestRetryPayment_FirstSessionNeverOpened(t *testing.T) {
	// The checkout warning path left the order with no payment row at all.
	// A missing payment, even reported wrapped, means retry creates a fresh
	// one rather than surfacing the lookup miss.
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	f.gateway.createErr = models.ErrGatewayUnavailable
	placed := checkoutOrder(t, f)
	f.gateway.createErr = nil

	result, err := f.service.RetryPayment(context.Background(), placed.Order.ID)
	if err != nil {
		t.Fatalf("RetryPayment() error = %v", err)
	}
	if result.Payment == nil || result.Payment.Status != models.PaymentPending {
		t.Errorf("payment = %+v, want a fresh pending payment", result.Payment)
	}
	if result.RedirectURL == "" {
		t.Error("expected a redirect URL for the new session")
	}
}

func TestRetryPayment_RejectsNonPendingOrder(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)

	if _, err := f.service.ConfirmPayment(context.Background(), placed.Payment.SessionID); err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}

	if _, err := f.service.RetryPayment(context.Background(), placed.Order.ID); err == nil {
		t.Fatal("RetryPayment() must reject an order that is no longer pending")
	}
}

func TestRetryPayment_RejectsPendingPayment(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)

	if _, err := f.service.RetryPayment(context.Background(), placed.Order.ID); err == nil {
		t.Fatal("RetryPayment() must reject a payment that is still pending")
	}
}

func TestCancelPayment(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	placed := checkoutOrder(t, f)

	if err := f.service.CancelPayment(placed.Order.ID); err != nil {
		t.Fatalf("CancelPayment() error = %v", err)
	}

	payment, _ := f.payments.GetByOrder(placed.Order.ID)
	if payment.Status != models.PaymentFailed {
		t.Errorf("payment status = %s, want failed", payment.Status)
	}
	order, _ := f.orders.GetByID(placed.Order.ID)
	if order.Status != models.OrderPending {
		t.Errorf("order status = %s, want pending", order.Status)
	}
	// Cancelling the payment keeps stock committed to the order
	if got := f.ledger.level(1); got != 3 {
		t.Errorf("plant 1 stock = %d, want 3", got)
	}
}

func TestCancelPayment_NoPaymentIsNoOp(t *testing.T) {
	f := newCheckoutFixture(twoLineCart(), map[int]int{1: 5, 2: 5}, true)
	f.gateway.createErr = models.ErrGatewayUnavailable
	placed := checkoutOrder(t, f)

	if placed.Payment != nil {
		t.Fatal("fixture expected no payment row")
	}
	if err := f.service.CancelPayment(placed.Order.ID); err != nil {
		t.Fatalf("CancelPayment() error = %v", err)
	}
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	const stock = 10
	const workers = 50
	ledger := newFakeLedger(map[int]int{1: stock})

	var wg sync.WaitGroup
	var succeeded int32
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(1, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != stock {
		t.Errorf("%d reservations succeeded, want %d", succeeded, stock)
	}
	if got := ledger.level(1); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

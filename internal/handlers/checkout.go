package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"plant-shop-platform/internal/middleware"
	"plant-shop-platform/internal/models"
	"plant-shop-platform/internal/services"
)

// CheckoutHandler drives the checkout flow and the payment gateway's
// return redirects. The completed redirect carries only an opaque session
// identifier; whether the customer actually paid is always re-fetched from
// the gateway, never read from the redirect. Order-scoped endpoints only act
// for the customer the order belongs to.
type CheckoutHandler struct {
	checkoutService services.CheckoutServiceInterface
	orders          orderGetter
	sessions        *middleware.SessionManager
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService services.CheckoutServiceInterface, orders orderGetter, sessions *middleware.SessionManager) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		orders:          orders,
		sessions:        sessions,
	}
}

// requireOrder loads the order and checks the requester owns it. Orders that
// do not exist and orders that belong to someone else get the same answer.
func (h *CheckoutHandler) requireOrder(w http.ResponseWriter, r *http.Request, orderID int) (*models.Order, bool) {
	order, err := h.orders.GetByID(orderID)
	if err != nil {
		if !errors.Is(err, models.ErrOrderNotFound) {
			log.Printf("Failed to load order %d: %v", orderID, err)
		}
		writeError(w, http.StatusNotFound, "Order not found")
		return nil, false
	}
	if !authorizedForOrder(r.Context(), order) {
		writeError(w, http.StatusNotFound, "Order not found")
		return nil, false
	}
	return order, true
}

type checkoutRequest struct {
	models.CustomerDetails
	PaymentMethod string `json:"payment_method"`
}

// Checkout handles POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.Owner(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Your cart is empty")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = models.MethodCreditCard
	}

	result, err := h.checkoutService.Checkout(r.Context(), &services.CheckoutRequest{
		Owner:    owner,
		UserID:   owner.UserID,
		Customer: req.CustomerDetails,
		Method:   method,
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	// Tie the order to this session so the cancel/retry/resend paths work
	// for anonymous customers too
	if err := h.sessions.RememberOrder(w, r, result.Order.ID); err != nil {
		log.Printf("Warning: failed to remember order %s in session: %v", result.Order.OrderNumber, err)
	}

	resp := map[string]interface{}{
		"order":        result.Order,
		"payment":      result.Payment,
		"redirect_url": result.RedirectURL,
	}
	if result.Warning != nil {
		// The order stands; payment can be retried from the order page
		resp["warning"] = "Your order was placed but the payment session could not be opened. Please retry the payment."
		log.Printf("Warning: checkout for order %s: %v", result.Order.OrderNumber, result.Warning)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// PaymentCompleted handles GET /checkout/payment/completed?session_id=...
// The outcome is verified with the gateway before anything changes.
func (h *CheckoutHandler) PaymentCompleted(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Missing session_id")
		return
	}

	result, err := h.checkoutService.ConfirmPayment(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPaymentNotFound):
			writeError(w, http.StatusNotFound, "Unknown payment session")
		case errors.Is(err, models.ErrPaymentOutcomeUnknown):
			writeError(w, http.StatusBadGateway, "Payment outcome could not be verified yet; please refresh in a moment")
		default:
			log.Printf("Failed to confirm payment session %s: %v", sessionID, err)
			writeError(w, http.StatusInternalServerError, "Failed to confirm payment")
		}
		return
	}

	resp := map[string]interface{}{
		"order":   result.Order,
		"payment": result.Payment,
		"paid":    result.Paid,
	}
	if result.Warning != nil {
		resp["warning"] = "Your payment succeeded but the confirmation email could not be sent."
	}

	writeJSON(w, http.StatusOK, resp)
}

// PaymentCancelled handles GET /checkout/payment/cancelled?order_id=...
// Cancelling only fails the payment attempt; the order and its stock stay
// put for a retry. Only the customer the order belongs to can cancel.
func (h *CheckoutHandler) PaymentCancelled(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(r.URL.Query().Get("order_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order_id")
		return
	}

	if _, ok := h.requireOrder(w, r, orderID); !ok {
		return
	}

	if err := h.checkoutService.CancelPayment(orderID); err != nil {
		log.Printf("Failed to cancel payment for order %d: %v", orderID, err)
		writeError(w, http.StatusInternalServerError, "Failed to cancel payment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Payment cancelled. You can retry the payment from your order.",
	})
}

// RetryPayment handles POST /api/orders/{id}/retry-payment
func (h *CheckoutHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	if _, ok := h.requireOrder(w, r, orderID); !ok {
		return
	}

	result, err := h.checkoutService.RetryPayment(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, models.ErrGatewayUnavailable):
			writeError(w, http.StatusBadGateway, "Payment provider is unavailable; please try again")
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":        result.Order,
		"payment":      result.Payment,
		"redirect_url": result.RedirectURL,
	})
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *models.InsufficientStockError
	switch {
	case errors.Is(err, models.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Your cart is empty")
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     stockErr.Error(),
			"plant_id":  stockErr.PlantID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.Is(err, models.ErrProductNotFound):
		writeError(w, http.StatusConflict, "A plant in your cart is no longer available")
	case errors.Is(err, models.ErrOrderPersistence):
		log.Printf("Checkout failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order; your cart is unchanged")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

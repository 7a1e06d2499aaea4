package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"plant-shop-platform/internal/middleware"
	"plant-shop-platform/internal/models"
	"plant-shop-platform/internal/services"
)

// orderReader is the slice of the order repository the handlers need
type orderReader interface {
	orderGetter
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetByUser(userID, limit, offset int) ([]*models.Order, error)
}

// paymentReader looks up the payment attached to an order
type paymentReader interface {
	GetByOrder(orderID int) (*models.Payment, error)
}

// OrderHandler serves order lookups for customers. Lookups by numeric ID
// are bound to the requester; the order number, which only the customer who
// placed the order holds, serves as the shareable reference.
type OrderHandler struct {
	orderRepo       orderReader
	paymentRepo     paymentReader
	checkoutService services.CheckoutServiceInterface
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderRepo orderReader, paymentRepo paymentReader, checkoutService services.CheckoutServiceInterface) *OrderHandler {
	return &OrderHandler{
		orderRepo:       orderRepo,
		paymentRepo:     paymentRepo,
		checkoutService: checkoutService,
	}
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.orderRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("Failed to get order %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	if !authorizedForOrder(r.Context(), order) {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	resp := map[string]interface{}{"order": order}
	if payment, err := h.paymentRepo.GetByOrder(order.ID); err == nil {
		resp["payment"] = payment
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOrderByNumber handles GET /api/orders/number/{orderNumber}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("Failed to get order %s: %v", orderNumber, err)
		writeError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"order": order})
}

// ListOrders handles GET /api/orders for the signed-in customer
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.Owner(r.Context())
	if !ok || owner.IsAnonymous() {
		writeError(w, http.StatusUnauthorized, "Sign in to view your orders")
		return
	}

	orders, err := h.orderRepo.GetByUser(owner.UserID, 50, 0)
	if err != nil {
		log.Printf("Failed to list orders for user %d: %v", owner.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// ResendConfirmation handles POST /api/orders/{id}/resend-confirmation for
// the customer the order belongs to
func (h *OrderHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.orderRepo.GetByID(id)
	if err != nil && !errors.Is(err, models.ErrOrderNotFound) {
		log.Printf("Failed to get order %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}
	if err != nil || !authorizedForOrder(r.Context(), order) {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	if err := h.checkoutService.ResendConfirmation(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, models.ErrRecipientNotVerified):
			writeError(w, http.StatusConflict, "Recipient address is awaiting verification; check your inbox first")
		default:
			log.Printf("Failed to resend confirmation for order %d: %v", id, err)
			writeError(w, http.StatusBadGateway, "Failed to send confirmation email")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Confirmation email sent"})
}

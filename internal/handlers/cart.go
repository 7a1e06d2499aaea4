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
)

// cartStore is the slice of the cart repository the handlers need
type cartStore interface {
	Add(owner models.CartOwner, plantID, quantity int, overrideQuantity bool) error
	Snapshot(owner models.CartOwner) ([]models.CartLineDetail, error)
	Remove(owner models.CartOwner, plantID int) error
	Clear(owner models.CartOwner) error
}

// CartHandler handles cart operations. Read endpoints never create a
// session; mutation endpoints mint an anonymous cart token when the visitor
// has none yet.
type CartHandler struct {
	cartRepo cartStore
	sessions *middleware.SessionManager
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartRepo cartStore, sessions *middleware.SessionManager) *CartHandler {
	return &CartHandler{cartRepo: cartRepo, sessions: sessions}
}

type cartMutationRequest struct {
	PlantID  int `json:"plant_id"`
	Quantity int `json:"quantity"`
}

// ShowCart handles GET /api/cart
func (h *CartHandler) ShowCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.Owner(r.Context())
	if !ok {
		// No session yet means an empty cart, not an error
		writeJSON(w, http.StatusOK, models.SummarizeCart(nil))
		return
	}

	lines, err := h.cartRepo.Snapshot(owner)
	if err != nil {
		log.Printf("Failed to load cart: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	writeJSON(w, http.StatusOK, models.SummarizeCart(lines))
}

// AddToCart handles POST /api/cart/items. Adding a plant already in the
// cart increments its quantity.
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner, err := h.sessions.EnsureOwner(w, r)
	if err != nil {
		log.Printf("Failed to establish cart session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to establish session")
		return
	}

	if err := h.cartRepo.Add(owner, req.PlantID, req.Quantity, false); err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.respondWithCart(w, owner)
}

// UpdateCartItem handles PUT /api/cart/items/{plantID}. The quantity in the
// body replaces the line's quantity.
func (h *CartHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	plantID, err := strconv.Atoi(chi.URLParam(r, "plantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plant ID")
		return
	}

	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner, err := h.sessions.EnsureOwner(w, r)
	if err != nil {
		log.Printf("Failed to establish cart session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to establish session")
		return
	}

	if req.Quantity == 0 {
		// Setting quantity to zero removes the line
		if err := h.cartRepo.Remove(owner, plantID); err != nil {
			h.writeMutationError(w, err)
			return
		}
		h.respondWithCart(w, owner)
		return
	}

	if err := h.cartRepo.Add(owner, plantID, req.Quantity, true); err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.respondWithCart(w, owner)
}

// RemoveCartItem handles DELETE /api/cart/items/{plantID}. Removing a line
// that is not in the cart is a no-op.
func (h *CartHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	plantID, err := strconv.Atoi(chi.URLParam(r, "plantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plant ID")
		return
	}

	owner, ok := middleware.Owner(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, models.SummarizeCart(nil))
		return
	}

	if err := h.cartRepo.Remove(owner, plantID); err != nil {
		log.Printf("Failed to remove cart item: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove item")
		return
	}

	h.respondWithCart(w, owner)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.Owner(r.Context())
	if ok {
		if err := h.cartRepo.Clear(owner); err != nil {
			log.Printf("Failed to clear cart: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to clear cart")
			return
		}
	}
	writeJSON(w, http.StatusOK, models.SummarizeCart(nil))
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, owner models.CartOwner) {
	lines, err := h.cartRepo.Snapshot(owner)
	if err != nil {
		log.Printf("Failed to load cart after mutation: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	writeJSON(w, http.StatusOK, models.SummarizeCart(lines))
}

func (h *CartHandler) writeMutationError(w http.ResponseWriter, err error) {
	var stockErr *models.InsufficientStockError
	switch {
	case errors.Is(err, models.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Plant not found")
	case errors.Is(err, models.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "Quantity must be at least 1")
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     stockErr.Error(),
			"plant_id":  stockErr.PlantID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	default:
		log.Printf("Cart mutation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update cart")
	}
}

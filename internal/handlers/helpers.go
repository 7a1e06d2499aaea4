package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"plant-shop-platform/internal/middleware"
	"plant-shop-platform/internal/models"
)

// orderGetter is the order lookup needed to authorize order-scoped requests
type orderGetter interface {
	GetByID(id int) (*models.Order, error)
}

// authorizedForOrder reports whether the request may act on the order: a
// signed-in customer owns their orders, and an anonymous session owns the
// order it placed. Anything else is treated as not found, never as a
// confirmation the order exists.
func authorizedForOrder(ctx context.Context, order *models.Order) bool {
	if owner, ok := middleware.Owner(ctx); ok && !owner.IsAnonymous() && owner.UserID == order.UserID {
		return true
	}
	orderID, ok := middleware.SessionOrder(ctx)
	return ok && orderID == order.ID
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package models

import (
	"errors"
	"time"
)

// Shipping is free above this subtotal, otherwise a flat rate applies.
// Amounts in cents.
const (
	FreeShippingThreshold = 5000
	FlatShippingCost      = 500
)

// CartOwner identifies who a cart line belongs to: a signed-in customer or
// an anonymous browser session. Exactly one of the two fields is set.
type CartOwner struct {
	UserID       int
	SessionToken string
}

// AccountOwner returns a cart owner for a signed-in customer
func AccountOwner(userID int) CartOwner {
	return CartOwner{UserID: userID}
}

// SessionOwner returns a cart owner for an anonymous session token
func SessionOwner(token string) CartOwner {
	return CartOwner{SessionToken: token}
}

// IsAnonymous returns true if the owner is an anonymous session
func (o CartOwner) IsAnonymous() bool {
	return o.UserID == 0
}

// Validate validates the cart owner
func (o CartOwner) Validate() error {
	if o.UserID == 0 && o.SessionToken == "" {
		return errors.New("cart owner requires a user id or a session token")
	}
	if o.UserID != 0 && o.SessionToken != "" {
		return errors.New("cart owner cannot have both a user id and a session token")
	}
	return nil
}

// CartLine represents one plant/quantity pairing in a cart
type CartLine struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id,omitempty" db:"user_id"`
	Token     string    `json:"-" db:"session_token"`
	PlantID   int       `json:"plant_id" db:"plant_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	DateAdded time.Time `json:"date_added" db:"date_added"`
}

// CartLineDetail is a cart line enriched with current catalog data. A
// snapshot of these lines fixes prices for the remainder of a checkout;
// later catalog price changes must not affect an order already snapshotted.
type CartLineDetail struct {
	PlantID   int    `json:"plant_id"`
	PlantName string `json:"plant_name"`
	UnitPrice int    `json:"unit_price"` // in cents, copied at snapshot time
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url"`
}

// Subtotal returns the line total in cents
func (l CartLineDetail) Subtotal() int {
	return l.UnitPrice * l.Quantity
}

// CartSummary represents cart contents with computed totals
type CartSummary struct {
	Lines        []CartLineDetail `json:"lines"`
	Subtotal     int              `json:"subtotal"`
	ShippingCost int              `json:"shipping_cost"`
	Total        int              `json:"total"`
}

// SummarizeCart computes totals for a set of snapshot lines
func SummarizeCart(lines []CartLineDetail) CartSummary {
	summary := CartSummary{Lines: lines}
	for _, line := range lines {
		summary.Subtotal += line.Subtotal()
	}

	if len(lines) > 0 && summary.Subtotal < FreeShippingThreshold {
		summary.ShippingCost = FlatShippingCost
	}

	summary.Total = summary.Subtotal + summary.ShippingCost
	return summary
}

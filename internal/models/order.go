package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions defines the legal order status transitions. Only
// pending→processing is driven by the checkout saga itself; the rest belong
// to fulfillment, but every transition is checked here regardless of caller.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// CanTransitionTo returns true if the transition from the current status is legal
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Counties supported for delivery
var orderCounties = []string{
	"antrim", "armagh", "carlow", "cavan", "clare", "cork", "derry",
	"donegal", "down", "dublin", "fermanagh", "galway", "kerry", "kildare",
	"kilkenny", "laois", "leitrim", "limerick", "longford", "louth", "mayo",
	"meath", "monaghan", "offaly", "roscommon", "sligo", "tipperary",
	"tyrone", "waterford", "westmeath", "wexford", "wicklow",
}

// Order represents a placed order. Immutable after creation except for
// Status and UpdatedAt; the total is computed once from the cart snapshot
// and never recomputed from live catalog prices.
type Order struct {
	ID           int         `json:"id" db:"id"`
	UserID       int         `json:"user_id" db:"user_id"`
	OrderNumber  string      `json:"order_number" db:"order_number"`
	FirstName    string      `json:"first_name" db:"first_name"`
	LastName     string      `json:"last_name" db:"last_name"`
	Email        string      `json:"email" db:"email"`
	Phone        string      `json:"phone" db:"phone"`
	AddressLine1 string      `json:"address_line1" db:"address_line1"`
	AddressLine2 string      `json:"address_line2" db:"address_line2"`
	TownOrCity   string      `json:"town_or_city" db:"town_or_city"`
	County       string      `json:"county" db:"county"`
	Eircode      string      `json:"eircode" db:"eircode"`
	Status       OrderStatus `json:"status" db:"status"`
	TotalPrice   int         `json:"total_price" db:"total_price"` // in cents
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
	Items        []OrderItem `json:"items"`
}

// OrderItem represents one line of an order. The unit price is copied from
// the cart snapshot, not referenced, so historic orders stay accurate after
// catalog price changes.
type OrderItem struct {
	ID        int    `json:"id" db:"id"`
	OrderID   int    `json:"order_id" db:"order_id"`
	PlantID   int    `json:"plant_id" db:"plant_id"`
	PlantName string `json:"plant_name" db:"plant_name"`
	UnitPrice int    `json:"unit_price" db:"unit_price"` // in cents
	Quantity  int    `json:"quantity" db:"quantity"`
}

// Subtotal returns the line total in cents
func (i OrderItem) Subtotal() int {
	return i.UnitPrice * i.Quantity
}

// ItemsTotal returns the sum of line totals in cents
func ItemsTotal(items []OrderItem) int {
	total := 0
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// CustomerDetails is the customer snapshot captured on an order
type CustomerDetails struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	TownOrCity   string `json:"town_or_city"`
	County       string `json:"county"`
	Eircode      string `json:"eircode"`
}

// FullName returns the customer's full name
func (c CustomerDetails) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

var (
	// Order number format: ORD-YYYYMMDD-XXXXXX (e.g., ORD-20240101-123456)
	orderNumberRegex = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)
	orderEmailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Validate validates the customer snapshot
func (c CustomerDetails) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return errors.New("first name is required")
	}

	if strings.TrimSpace(c.LastName) == "" {
		return errors.New("last name is required")
	}

	if c.Email == "" {
		return errors.New("email is required")
	}

	if !orderEmailRegex.MatchString(c.Email) {
		return errors.New("email format is invalid")
	}

	if strings.TrimSpace(c.Phone) == "" {
		return errors.New("phone is required")
	}

	if strings.TrimSpace(c.AddressLine1) == "" {
		return errors.New("address line 1 is required")
	}

	if strings.TrimSpace(c.TownOrCity) == "" {
		return errors.New("town or city is required")
	}

	if !isValidCounty(c.County) {
		return fmt.Errorf("invalid county: %q", c.County)
	}

	if len(c.Eircode) > 8 {
		return errors.New("eircode must be at most 8 characters")
	}

	return nil
}

func isValidCounty(county string) bool {
	for _, c := range orderCounties {
		if c == strings.ToLower(county) {
			return true
		}
	}
	return false
}

// Validate validates the order data
func (o *Order) Validate() error {
	if o.OrderNumber == "" {
		return errors.New("order number is required")
	}

	if !orderNumberRegex.MatchString(o.OrderNumber) {
		return errors.New("order number format is invalid")
	}

	if o.TotalPrice < 0 {
		return errors.New("total price cannot be negative")
	}

	switch o.Status {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
	default:
		return errors.New("invalid order status")
	}

	if len(o.Items) > 0 && ItemsTotal(o.Items) != o.TotalPrice {
		return errors.New("total price does not match the sum of line items")
	}

	return nil
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	// Generate a 6-digit random number using crypto/rand for better uniqueness
	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		timestamp := now.UnixNano()
		return fmt.Sprintf("ORD-%s-%06d", dateStr, timestamp%1000000)
	}

	return fmt.Sprintf("ORD-%s-%06d", dateStr, randomNum.Int64())
}

// IsPending returns true if the order is awaiting payment
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// CanBeCancelled returns true if the order can still be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status.CanTransitionTo(OrderCancelled)
}

// TotalPriceInCurrency returns the total in the main currency as a float
func (o *Order) TotalPriceInCurrency() float64 {
	return float64(o.TotalPrice) / 100.0
}

// ShippingAddress returns the delivery address as display lines
func (o *Order) ShippingAddress() []string {
	lines := []string{o.AddressLine1}
	if o.AddressLine2 != "" {
		lines = append(lines, o.AddressLine2)
	}

	locality := fmt.Sprintf("%s, %s", o.TownOrCity, titleCounty(o.County))
	if o.Eircode != "" {
		locality += ", " + o.Eircode
	}

	return append(lines, locality)
}

func titleCounty(county string) string {
	if county == "" {
		return county
	}
	return strings.ToUpper(county[:1]) + strings.ToLower(county[1:])
}

package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plant-shop-platform/internal/models"
)

// OrderRepository handles order data operations
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderItemInput is one order line at creation time, with the unit price
// locked from the cart snapshot.
type OrderItemInput struct {
	PlantID   int
	PlantName string
	UnitPrice int // in cents
	Quantity  int
}

// OrderCreateRequest represents the data needed to create a new order
type OrderCreateRequest struct {
	UserID     int
	Customer   models.CustomerDetails
	Items      []OrderItemInput
	TotalPrice int // in cents
}

// Validate validates order creation data
func (req *OrderCreateRequest) Validate() error {
	if err := req.Customer.Validate(); err != nil {
		return err
	}

	if len(req.Items) == 0 {
		return errors.New("order requires at least one line item")
	}

	total := 0
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return models.ErrInvalidQuantity
		}
		if item.UnitPrice < 0 {
			return errors.New("unit price cannot be negative")
		}
		total += item.UnitPrice * item.Quantity
	}

	if total != req.TotalPrice {
		return errors.New("total price does not match the sum of line items")
	}

	return nil
}

const orderColumns = `id, user_id, order_number, first_name, last_name, email, phone, address_line1, address_line2, town_or_city, county, eircode, status, total_price, created_at, updated_at`

func scanOrder(scan func(dest ...interface{}) error) (*models.Order, error) {
	order := &models.Order{}
	var userID sql.NullInt64
	err := scan(
		&order.ID,
		&userID,
		&order.OrderNumber,
		&order.FirstName,
		&order.LastName,
		&order.Email,
		&order.Phone,
		&order.AddressLine1,
		&order.AddressLine2,
		&order.TownOrCity,
		&order.County,
		&order.Eircode,
		&order.Status,
		&order.TotalPrice,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.UserID = int(userID.Int64)
	return order, nil
}

// Create writes the order and all of its line items in one transaction. An
// order is never observable with zero items when the snapshot had lines.
func (r *OrderRepository) Create(req *OrderCreateRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Generate unique order number (retry on collision)
	orderNumber := models.GenerateOrderNumber()
	for i := 0; i < 5; i++ {
		var exists bool
		err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)", orderNumber).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check order number uniqueness: %w", err)
		}
		if !exists {
			break
		}
		orderNumber = models.GenerateOrderNumber()
	}

	query := fmt.Sprintf(`
		INSERT INTO orders (user_id, order_number, first_name, last_name, email, phone, address_line1, address_line2, town_or_city, county, eircode, status, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING %s`, orderColumns)

	var userID interface{}
	if req.UserID != 0 {
		userID = req.UserID
	}

	now := time.Now()
	order, err := scanOrder(tx.QueryRow(
		query,
		userID,
		orderNumber,
		req.Customer.FirstName,
		req.Customer.LastName,
		req.Customer.Email,
		req.Customer.Phone,
		req.Customer.AddressLine1,
		req.Customer.AddressLine2,
		req.Customer.TownOrCity,
		req.Customer.County,
		req.Customer.Eircode,
		models.OrderPending,
		req.TotalPrice,
		now,
		now,
	).Scan)

	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range req.Items {
		var orderItem models.OrderItem
		err = tx.QueryRow(`
			INSERT INTO order_items (order_id, plant_id, plant_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, order_id, plant_id, plant_name, unit_price, quantity`,
			order.ID, item.PlantID, item.PlantName, item.UnitPrice, item.Quantity,
		).Scan(
			&orderItem.ID,
			&orderItem.OrderID,
			&orderItem.PlantID,
			&orderItem.PlantName,
			&orderItem.UnitPrice,
			&orderItem.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		order.Items = append(order.Items, orderItem)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	return order, nil
}

// GetByID retrieves an order with its line items
func (r *OrderRepository) GetByID(id int) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRow(query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.Items, err = r.getItems(order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByOrderNumber retrieves an order by order number
func (r *OrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE order_number = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRow(query, orderNumber).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}

	if order.Items, err = r.getItems(order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) getItems(orderID int) ([]models.OrderItem, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, plant_id, plant_name, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.PlantID, &item.PlantName, &item.UnitPrice, &item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// UpdateStatus transitions the order status, rejecting any transition not in
// the status table. The update is guarded on the prior status so a
// concurrent transition cannot be silently overwritten.
func (r *OrderRepository) UpdateStatus(id int, status models.OrderStatus) error {
	order, err := r.GetByID(id)
	if err != nil {
		return err
	}

	if !order.Status.CanTransitionTo(status) {
		return fmt.Errorf("invalid order status transition from %s to %s", order.Status, status)
	}

	result, err := r.db.Exec(`
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4`, id, status, time.Now(), order.Status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("order %d changed status concurrently", id)
	}

	return nil
}

// GetByUser retrieves a user's orders, most recent first
func (r *OrderRepository) GetByUser(userID int, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, orderColumns)

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"plant-shop-platform/internal/models"
)

// CartRepository handles cart line storage for both signed-in customers and
// anonymous sessions. At most one line exists per (owner, plant).
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Add adds a plant to the cart or updates its quantity. When
// overrideQuantity is false the quantity is added to any existing line,
// otherwise it replaces it. The quantity is checked against current stock so
// the customer hears about a shortfall here, not at checkout; checkout still
// re-checks under its reservation, which is the authoritative one.
func (r *CartRepository) Add(owner models.CartOwner, plantID, quantity int, overrideQuantity bool) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if quantity < 1 {
		return models.ErrInvalidQuantity
	}

	var name string
	var stock int
	err := r.db.QueryRow(`SELECT name, stock FROM plants WHERE id = $1 AND available = TRUE`, plantID).Scan(&name, &stock)
	if err == sql.ErrNoRows {
		return models.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check plant: %w", err)
	}
	if quantity > stock {
		return &models.InsufficientStockError{
			PlantID:   plantID,
			PlantName: name,
			Requested: quantity,
			Available: stock,
		}
	}

	update := "cart_items.quantity + EXCLUDED.quantity"
	if overrideQuantity {
		update = "EXCLUDED.quantity"
	}

	now := time.Now()
	if owner.IsAnonymous() {
		query := fmt.Sprintf(`
			INSERT INTO cart_items (session_token, plant_id, quantity, date_added)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_token, plant_id) WHERE session_token IS NOT NULL
			DO UPDATE SET quantity = %s`, update)
		_, err = r.db.Exec(query, owner.SessionToken, plantID, quantity, now)
	} else {
		query := fmt.Sprintf(`
			INSERT INTO cart_items (user_id, plant_id, quantity, date_added)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, plant_id) WHERE user_id IS NOT NULL
			DO UPDATE SET quantity = %s`, update)
		_, err = r.db.Exec(query, owner.UserID, plantID, quantity, now)
	}

	if err != nil {
		return fmt.Errorf("failed to add cart line: %w", err)
	}

	return nil
}

// Snapshot returns the owner's cart lines enriched with current plant
// name/price/image, ordered by when they were added. Callers that need the
// prices fixed (the checkout saga) must use this copy and never re-read.
func (r *CartRepository) Snapshot(owner models.CartOwner) ([]models.CartLineDetail, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		SELECT c.plant_id, p.name, p.price, c.quantity, p.image_url
		FROM cart_items c
		JOIN plants p ON c.plant_id = p.id
		WHERE ` + r.ownerClause(owner) + `
		ORDER BY c.date_added, c.id`

	rows, err := r.db.Query(query, r.ownerArg(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLineDetail
	for rows.Next() {
		var line models.CartLineDetail
		err := rows.Scan(&line.PlantID, &line.PlantName, &line.UnitPrice, &line.Quantity, &line.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// Remove removes a plant from the cart. Removing an absent line is a no-op.
func (r *CartRepository) Remove(owner models.CartOwner, plantID int) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `DELETE FROM cart_items WHERE ` + r.ownerClause(owner) + ` AND plant_id = $2`
	if _, err := r.db.Exec(query, r.ownerArg(owner), plantID); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}

	return nil
}

// Clear removes all lines from the cart. Clearing an empty cart is a no-op.
func (r *CartRepository) Clear(owner models.CartOwner) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `DELETE FROM cart_items WHERE ` + r.ownerClause(owner)
	if _, err := r.db.Exec(query, r.ownerArg(owner)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// Count returns the number of lines in the cart
func (r *CartRepository) Count(owner models.CartOwner) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	var count int
	query := `SELECT COUNT(*) FROM cart_items WHERE ` + r.ownerClause(owner)
	if err := r.db.QueryRow(query, r.ownerArg(owner)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cart lines: %w", err)
	}

	return count, nil
}

func (r *CartRepository) ownerClause(owner models.CartOwner) string {
	if owner.IsAnonymous() {
		return "session_token = $1"
	}
	return "user_id = $1"
}

func (r *CartRepository) ownerArg(owner models.CartOwner) interface{} {
	if owner.IsAnonymous() {
		return owner.SessionToken
	}
	return owner.UserID
}

package repositories

import (
	"database/sql"
	"fmt"

	"plant-shop-platform/internal/models"
)

// InventoryRepository is the single source of truth for plant availability.
// Reservations must not be bypassed by reading a cached stock count.
type InventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Reservation records a successful stock decrement. PriorStock is the
// quantity on hand before the decrement, kept for diagnostics and
// compensation bookkeeping.
type Reservation struct {
	PlantID    int
	Quantity   int
	PriorStock int
}

// Reserve atomically checks availability and decrements stock in a single
// conditional update, so two concurrent reservations against the same plant
// observe a serialized view of remaining stock. Returns
// *models.InsufficientStockError when stock is short; no partial decrement
// is ever visible.
func (r *InventoryRepository) Reserve(plantID, quantity int) (*Reservation, error) {
	if quantity < 1 {
		return nil, models.ErrInvalidQuantity
	}

	var remaining int
	err := r.db.QueryRow(`
		UPDATE plants
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`, plantID, quantity).Scan(&remaining)

	if err == nil {
		return &Reservation{
			PlantID:    plantID,
			Quantity:   quantity,
			PriorStock: remaining + quantity,
		}, nil
	}

	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	// The conditional update matched no row: either the plant is unknown or
	// stock is short. Distinguish for the caller.
	var name string
	var available int
	err = r.db.QueryRow(`SELECT name, stock FROM plants WHERE id = $1`, plantID).Scan(&name, &available)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to check stock: %w", err)
	}

	return nil, &models.InsufficientStockError{
		PlantID:   plantID,
		PlantName: name,
		Requested: quantity,
		Available: available,
	}
}

// Release returns reserved units to stock. Used to compensate a failed
// downstream step after a successful reservation. Releasing zero units is a
// no-op.
func (r *InventoryRepository) Release(plantID, quantity int) error {
	if quantity == 0 {
		return nil
	}
	if quantity < 0 {
		return models.ErrInvalidQuantity
	}

	result, err := r.db.Exec(`
		UPDATE plants
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1`, plantID, quantity)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrProductNotFound
	}

	return nil
}

// StockLevel returns the current quantity on hand
func (r *InventoryRepository) StockLevel(plantID int) (int, error) {
	var stock int
	err := r.db.QueryRow(`SELECT stock FROM plants WHERE id = $1`, plantID).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, models.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to get stock level: %w", err)
	}

	return stock, nil
}

package models

import (
	"errors"
	"strings"
	"time"
)

// PlantDifficulty represents how hard a plant is to care for
type PlantDifficulty string

const (
	DifficultyEasy   PlantDifficulty = "easy"
	DifficultyMedium PlantDifficulty = "medium"
	DifficultyHard   PlantDifficulty = "hard"
)

// Plant represents a product in the catalog. The checkout saga reads plants
// by reference only; the single mutable field it touches is Stock, and only
// through the inventory repository's atomic reserve/release operations.
type Plant struct {
	ID               int             `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	CareInstructions string          `json:"care_instructions" db:"care_instructions"`
	Difficulty       PlantDifficulty `json:"difficulty" db:"difficulty"`
	Price            int             `json:"price" db:"price"` // Price in cents
	Stock            int             `json:"stock" db:"stock"`
	ImageURL         string          `json:"image_url" db:"image_url"`
	Available        bool            `json:"available" db:"available"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the plant data
func (p *Plant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("plant name is required")
	}

	if p.Price < 0 {
		return errors.New("price cannot be negative")
	}

	if p.Stock < 0 {
		return errors.New("stock cannot be negative")
	}

	switch p.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return errors.New("invalid difficulty")
	}

	return nil
}

// PriceInCurrency returns the price in the main currency as a float
func (p *Plant) PriceInCurrency() float64 {
	return float64(p.Price) / 100.0
}

// InStock returns true if at least one unit is on hand
func (p *Plant) InStock() bool {
	return p.Available && p.Stock > 0
}

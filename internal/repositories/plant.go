package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"plant-shop-platform/internal/models"
)

// PlantRepository handles catalog data operations. The checkout saga only
// ever reads from it; stock mutation goes through InventoryRepository.
type PlantRepository struct {
	db *sql.DB
}

// NewPlantRepository creates a new plant repository
func NewPlantRepository(db *sql.DB) *PlantRepository {
	return &PlantRepository{db: db}
}

const plantColumns = `id, name, description, care_instructions, difficulty, price, stock, image_url, available, created_at, updated_at`

func scanPlant(row *sql.Row) (*models.Plant, error) {
	plant := &models.Plant{}
	err := row.Scan(
		&plant.ID,
		&plant.Name,
		&plant.Description,
		&plant.CareInstructions,
		&plant.Difficulty,
		&plant.Price,
		&plant.Stock,
		&plant.ImageURL,
		&plant.Available,
		&plant.CreatedAt,
		&plant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return plant, nil
}

// Create creates a new plant
func (r *PlantRepository) Create(plant *models.Plant) (*models.Plant, error) {
	if err := plant.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO plants (name, description, care_instructions, difficulty, price, stock, image_url, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, plantColumns)

	now := time.Now()
	row := r.db.QueryRow(
		query,
		plant.Name,
		plant.Description,
		plant.CareInstructions,
		plant.Difficulty,
		plant.Price,
		plant.Stock,
		plant.ImageURL,
		plant.Available,
		now,
		now,
	)

	created, err := scanPlant(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create plant: %w", err)
	}

	return created, nil
}

// GetByID retrieves a plant by ID
func (r *PlantRepository) GetByID(id int) (*models.Plant, error) {
	query := fmt.Sprintf(`SELECT %s FROM plants WHERE id = $1`, plantColumns)

	plant, err := scanPlant(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}

	return plant, nil
}

// List retrieves available plants ordered by name
func (r *PlantRepository) List(limit, offset int) ([]*models.Plant, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM plants
		WHERE available = TRUE
		ORDER BY name
		LIMIT $1 OFFSET $2`, plantColumns)

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()

	var plants []*models.Plant
	for rows.Next() {
		plant := &models.Plant{}
		err := rows.Scan(
			&plant.ID,
			&plant.Name,
			&plant.Description,
			&plant.CareInstructions,
			&plant.Difficulty,
			&plant.Price,
			&plant.Stock,
			&plant.ImageURL,
			&plant.Available,
			&plant.CreatedAt,
			&plant.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		plants = append(plants, plant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plants: %w", err)
	}

	return plants, nil
}

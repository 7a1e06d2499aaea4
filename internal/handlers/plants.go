package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"plant-shop-platform/internal/models"
	"plant-shop-platform/internal/repositories"
)

// PlantHandler serves the plant catalog
type PlantHandler struct {
	plantRepo *repositories.PlantRepository
}

// NewPlantHandler creates a new plant handler
func NewPlantHandler(plantRepo *repositories.PlantRepository) *PlantHandler {
	return &PlantHandler{plantRepo: plantRepo}
}

// ListPlants handles GET /api/plants
func (h *PlantHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	plants, err := h.plantRepo.List(limit, offset)
	if err != nil {
		log.Printf("Failed to list plants: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load plants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"plants": plants})
}

// GetPlant handles GET /api/plants/{id}
func (h *PlantHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plant ID")
		return
	}

	plant, err := h.plantRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Plant not found")
			return
		}
		log.Printf("Failed to get plant %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to load plant")
		return
	}

	writeJSON(w, http.StatusOK, plant)
}

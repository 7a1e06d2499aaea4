package main

import (
	"log"

	"plant-shop-platform/internal/config"
	"plant-shop-platform/internal/database"
	"plant-shop-platform/internal/models"
	"plant-shop-platform/internal/repositories"
)

// Seeds the catalog with a starter set of plants. Prices in cents.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	plantRepo := repositories.NewPlantRepository(db.DB)

	plants := []models.Plant{
		{
			Name:             "Monstera Deliciosa",
			Description:      "The classic Swiss cheese plant with dramatic split leaves.",
			CareInstructions: "Bright indirect light. Water when the top inch of soil is dry.",
			Difficulty:       models.DifficultyEasy,
			Price:            3499,
			Stock:            25,
			Available:        true,
		},
		{
			Name:             "Snake Plant",
			Description:      "Nearly indestructible upright foliage, happy in low light.",
			CareInstructions: "Tolerates low light. Water sparingly; let the soil dry out fully.",
			Difficulty:       models.DifficultyEasy,
			Price:            1999,
			Stock:            40,
			Available:        true,
		},
		{
			Name:             "Fiddle Leaf Fig",
			Description:      "Statement tree with broad violin-shaped leaves.",
			CareInstructions: "Bright light, consistent watering, no cold draughts.",
			Difficulty:       models.DifficultyHard,
			Price:            5999,
			Stock:            10,
			Available:        true,
		},
		{
			Name:             "Pothos Golden",
			Description:      "Trailing vine with marbled golden leaves.",
			CareInstructions: "Any light except direct sun. Water weekly.",
			Difficulty:       models.DifficultyEasy,
			Price:            1499,
			Stock:            60,
			Available:        true,
		},
		{
			Name:             "Calathea Orbifolia",
			Description:      "Striped round leaves that fold up at night.",
			CareInstructions: "High humidity, filtered water, indirect light.",
			Difficulty:       models.DifficultyMedium,
			Price:            2899,
			Stock:            15,
			Available:        true,
		},
		{
			Name:             "String of Pearls",
			Description:      "Cascading succulent beads for a hanging pot.",
			CareInstructions: "Bright light. Water every two to three weeks.",
			Difficulty:       models.DifficultyMedium,
			Price:            1799,
			Stock:            20,
			Available:        true,
		},
	}

	created := 0
	for i := range plants {
		if _, err := plantRepo.Create(&plants[i]); err != nil {
			log.Printf("Warning: failed to seed %s: %v", plants[i].Name, err)
			continue
		}
		created++
	}

	log.Printf("Seeded %d of %d plants", created, len(plants))
}

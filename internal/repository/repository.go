package repository

import (
	"fmt"

	"github.com/yourusername/f1-predictor/internal/database"
)

// Repositories holds the Postgres-backed repository implementations
type Repositories struct {
	Feature    FeatureRepository
	Prediction PredictionRepository
}

// NewRepositories creates and returns all Postgres repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Feature:    NewPostgresFeatureRepository(db),
		Prediction: NewPostgresPredictionRepository(db),
	}, nil
}

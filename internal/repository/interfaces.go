package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/f1-predictor/internal/models"
)

// FeatureRepository persists the per-season feature table.
type FeatureRepository interface {
	SaveSeason(ctx context.Context, season int, rows []models.FeatureRow) error
	LoadSeason(ctx context.Context, season int) ([]models.FeatureRow, error)
	// LoadSeasons concatenates the given seasons in chronological order,
	// whatever order they are passed in, skipping seasons that were never
	// saved.
	LoadSeasons(ctx context.Context, seasons []int) ([]models.FeatureRow, error)
}

// PredictionRepository persists prediction runs and their records.
type PredictionRepository interface {
	SaveRun(ctx context.Context, run *models.PredictionRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.PredictionRun, error)
	GetLatestForEvent(ctx context.Context, season int, event string) (*models.PredictionRun, error)
}

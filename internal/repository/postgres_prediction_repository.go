package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/f1-predictor/internal/database"
	"github.com/yourusername/f1-predictor/internal/models"
)

type postgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a prediction repository backed by
// the prediction_runs and predictions tables.
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &postgresPredictionRepository{db: db}
}

// SaveRun inserts the run header and bulk-copies its records.
func (r *postgresPredictionRepository) SaveRun(ctx context.Context, run *models.PredictionRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	for i := range run.Records {
		if err := run.Records[i].Validate(); err != nil {
			return err
		}
		run.Records[i].RunID = run.ID
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO prediction_runs (id, season, event, state, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, run.ID, run.Season, run.Event, string(run.State), run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert prediction run: %w", err)
		}
		if len(run.Records) == 0 {
			return nil
		}

		columns := []string{
			"run_id", "driver", "qualifying_position", "sprint_class", "race_score",
			"predicted_position", "grid_position", "race_pace", "tire_degradation",
			"top_speed", "rain_probability",
		}
		values := make([][]interface{}, len(run.Records))
		for i, p := range run.Records {
			values[i] = []interface{}{
				run.ID, p.DriverID, p.QualifyingPosition, string(p.SprintClass), p.RaceScore,
				p.PredictedPosition, nullableFloat(p.GridPosition), nullableFloat(p.RacePace),
				nullableFloat(p.TireDegradation), nullableFloat(p.TopSpeed), p.RainProbability,
			}
		}

		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"predictions"}, columns, pgx.CopyFromRows(values))
		if err != nil {
			return fmt.Errorf("failed to copy predictions: %w", err)
		}
		if int(copyCount) != len(run.Records) {
			return fmt.Errorf("expected to copy %d predictions, copied %d", len(run.Records), copyCount)
		}
		return nil
	})
}

func (r *postgresPredictionRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.PredictionRun, error) {
	query := `SELECT id, season, event, state, created_at FROM prediction_runs WHERE id = $1`
	return r.loadRun(ctx, query, id)
}

// GetLatestForEvent returns the most recent run for the event.
func (r *postgresPredictionRepository) GetLatestForEvent(ctx context.Context, season int, event string) (*models.PredictionRun, error) {
	query := `
		SELECT id, season, event, state, created_at
		FROM prediction_runs
		WHERE season = $1 AND event = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.loadRun(ctx, query, season, event)
}

func (r *postgresPredictionRepository) loadRun(ctx context.Context, query string, args ...interface{}) (*models.PredictionRun, error) {
	var (
		run   models.PredictionRun
		state string
	)
	err := r.db.GetPool().QueryRow(ctx, query, args...).Scan(
		&run.ID, &run.Season, &run.Event, &state, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prediction run: %w", err)
	}
	run.State = models.EventState(state)

	records, err := r.loadRecords(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Records = records
	return &run, nil
}

func (r *postgresPredictionRepository) loadRecords(ctx context.Context, runID uuid.UUID) ([]models.PredictionRecord, error) {
	query := `
		SELECT run_id, driver, qualifying_position, sprint_class, race_score,
		       predicted_position, grid_position, race_pace, tire_degradation,
		       top_speed, rain_probability
		FROM predictions
		WHERE run_id = $1
		ORDER BY predicted_position, driver
	`

	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var (
			p                         models.PredictionRecord
			sprint                    string
			grid, pace, deg, topSpeed *float64
		)
		if err := rows.Scan(
			&p.RunID, &p.DriverID, &p.QualifyingPosition, &sprint, &p.RaceScore,
			&p.PredictedPosition, &grid, &pace, &deg, &topSpeed, &p.RainProbability,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.SprintClass = models.SprintClass(sprint)
		p.GridPosition = fromNullable(grid)
		p.RacePace = fromNullable(pace)
		p.TireDegradation = fromNullable(deg)
		p.TopSpeed = fromNullable(topSpeed)
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return records, nil
}

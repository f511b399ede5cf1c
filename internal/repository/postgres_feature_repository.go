package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/f1-predictor/internal/database"
	"github.com/yourusername/f1-predictor/internal/models"
)

var featureColumns = []string{
	"season", "round_number", "session_type", "driver", "team", "circuit",
	"track_temp", "overtake_difficulty", "driver_avg_pos", "driver_dnf_rate",
	"quali_delta_teammate", "reliability_score", "constructor_standing",
	"grid_position", "race_pace", "tire_degradation", "top_speed",
	"rain_probability", "target_position",
}

type postgresFeatureRepository struct {
	db *database.DB
}

// NewPostgresFeatureRepository creates a feature repository backed by the
// feature_rows table.
func NewPostgresFeatureRepository(db *database.DB) FeatureRepository {
	return &postgresFeatureRepository{db: db}
}

// SaveSeason replaces every row of the season inside one transaction.
func (r *postgresFeatureRepository) SaveSeason(ctx context.Context, season int, rows []models.FeatureRow) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM feature_rows WHERE season = $1`, season); err != nil {
			return fmt.Errorf("failed to clear season %d: %w", season, err)
		}
		if len(rows) == 0 {
			return nil
		}

		values := make([][]interface{}, len(rows))
		for i, row := range rows {
			values[i] = []interface{}{
				season, row.RoundNumber, string(row.SessionKind), row.DriverID,
				row.ConstructorID, row.Circuit, row.TrackTemp, row.OvertakeDifficulty,
				nullableFloat(row.DriverAvgPos), row.DriverDNFRate, row.QualiDeltaTeammate,
				row.ReliabilityScore, nullableFloat(row.ConstructorStanding),
				nullablePtr(row.GridPosition), nullablePtr(row.RacePace),
				nullablePtr(row.TireDegradation), nullablePtr(row.TopSpeed),
				row.RainProbability, nullablePtr(row.TargetPosition),
			}
		}

		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"feature_rows"}, featureColumns, pgx.CopyFromRows(values))
		if err != nil {
			return fmt.Errorf("failed to copy feature rows: %w", err)
		}
		if int(copyCount) != len(rows) {
			return fmt.Errorf("expected to copy %d feature rows, copied %d", len(rows), copyCount)
		}
		return nil
	})
}

func (r *postgresFeatureRepository) LoadSeason(ctx context.Context, season int) ([]models.FeatureRow, error) {
	rows, err := r.querySeasons(ctx, []int{season})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("season %d: %w", season, models.ErrNotFound)
	}
	return rows, nil
}

func (r *postgresFeatureRepository) LoadSeasons(ctx context.Context, seasons []int) ([]models.FeatureRow, error) {
	return r.querySeasons(ctx, chronological(seasons))
}

func (r *postgresFeatureRepository) querySeasons(ctx context.Context, seasons []int) ([]models.FeatureRow, error) {
	query := `
		SELECT season, round_number, session_type, driver, team, circuit,
		       track_temp, overtake_difficulty, driver_avg_pos, driver_dnf_rate,
		       quali_delta_teammate, reliability_score, constructor_standing,
		       grid_position, race_pace, tire_degradation, top_speed,
		       rain_probability, target_position
		FROM feature_rows
		WHERE season = ANY($1)
		ORDER BY season, round_number,
		         CASE session_type WHEN 'Qualifying' THEN 0 WHEN 'Sprint' THEN 1 ELSE 2 END,
		         driver
	`

	rows, err := r.db.GetPool().Query(ctx, query, seasons)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature rows: %w", err)
	}
	defer rows.Close()

	var out []models.FeatureRow
	for rows.Next() {
		var (
			row              models.FeatureRow
			kind             string
			avgPos, standing *float64
		)
		if err := rows.Scan(
			&row.SeasonYear, &row.RoundNumber, &kind, &row.DriverID, &row.ConstructorID,
			&row.Circuit, &row.TrackTemp, &row.OvertakeDifficulty, &avgPos, &row.DriverDNFRate,
			&row.QualiDeltaTeammate, &row.ReliabilityScore, &standing,
			&row.GridPosition, &row.RacePace, &row.TireDegradation, &row.TopSpeed,
			&row.RainProbability, &row.TargetPosition,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		row.SessionKind = models.SessionKind(kind)
		row.DriverAvgPos = fromNullable(avgPos)
		row.ConstructorStanding = fromNullable(standing)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feature rows: %w", err)
	}
	return out, nil
}

// nullableFloat maps NaN to SQL NULL.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func nullablePtr(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	return v
}

func fromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/f1-predictor/internal/models"
)

// ErrMissingColumn is returned when a feature table lacks an identifying
// column. Missing feature columns are filled with their defaults instead.
var ErrMissingColumn = errors.New("feature table missing required column")

var requiredColumns = []string{models.ColDriver, models.ColRoundNumber, models.ColSessionType}

// CSVFeatureRepository stores one features_<year>.csv file per season.
type CSVFeatureRepository struct {
	dir string
}

// NewCSVFeatureRepository creates a repository rooted at dir.
func NewCSVFeatureRepository(dir string) *CSVFeatureRepository {
	return &CSVFeatureRepository{dir: dir}
}

// Path returns the file holding season.
func (r *CSVFeatureRepository) Path(season int) string {
	return filepath.Join(r.dir, fmt.Sprintf("features_%d.csv", season))
}

// SaveSeason replaces the season's file. The table is written to a temporary
// file first and renamed into place.
func (r *CSVFeatureRepository) SaveSeason(_ context.Context, season int, rows []models.FeatureRow) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feature directory: %w", err)
	}
	tmp, err := os.CreateTemp(r.dir, fmt.Sprintf(".features_%d_*.csv", season))
	if err != nil {
		return fmt.Errorf("failed to create feature file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteFeatureCSV(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close feature file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.Path(season)); err != nil {
		return fmt.Errorf("failed to move feature file into place: %w", err)
	}
	return nil
}

// LoadSeason reads one season. A missing file yields models.ErrNotFound.
func (r *CSVFeatureRepository) LoadSeason(_ context.Context, season int) ([]models.FeatureRow, error) {
	f, err := os.Open(r.Path(season))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("season %d: %w", season, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open feature file: %w", err)
	}
	defer f.Close()

	rows, err := ReadFeatureCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Path(season), err)
	}
	for i := range rows {
		if rows[i].SeasonYear == 0 {
			rows[i].SeasonYear = season
		}
	}
	return rows, nil
}

// LoadSeasons implements FeatureRepository.
func (r *CSVFeatureRepository) LoadSeasons(ctx context.Context, seasons []int) ([]models.FeatureRow, error) {
	var out []models.FeatureRow
	for _, season := range chronological(seasons) {
		rows, err := r.LoadSeason(ctx, season)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// Seasons lists the seasons present in the directory in ascending order.
func (r *CSVFeatureRepository) Seasons() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, "features_*.csv"))
	if err != nil {
		return nil, err
	}
	var seasons []int
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "features_"), ".csv")
		if year, err := strconv.Atoi(name); err == nil {
			seasons = append(seasons, year)
		}
	}
	sort.Ints(seasons)
	return seasons, nil
}

// WriteFeatureCSV writes rows with a header in models.FeatureColumns order.
// NaN and absent values are written as empty cells.
func WriteFeatureCSV(w io.Writer, rows []models.FeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.FeatureColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(models.FeatureColumns))
	for _, row := range rows {
		for i, col := range models.FeatureColumns {
			record[i] = formatCell(row, col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(row models.FeatureRow, col string) string {
	switch col {
	case models.ColDriver:
		return row.DriverID
	case models.ColTeam:
		return row.ConstructorID
	case models.ColCircuit:
		return row.Circuit
	case models.ColSessionType:
		return string(row.SessionKind)
	case models.ColSeason:
		return strconv.Itoa(row.SeasonYear)
	case models.ColRoundNumber:
		return strconv.Itoa(row.RoundNumber)
	case models.ColOvertakeDifficulty:
		return strconv.Itoa(row.OvertakeDifficulty)
	}
	v, _ := row.Value(col)
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadFeatureCSV parses a feature table. Columns are matched by header name
// in any order; unknown columns are ignored.
func ReadFeatureCSV(r io.Reader) ([]models.FeatureRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var rows []models.FeatureRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type cellReader struct {
	record []string
	index  map[string]int
	err    error
}

func (c *cellReader) text(col string) string {
	i, ok := c.index[col]
	if !ok || i >= len(c.record) {
		return ""
	}
	return strings.TrimSpace(c.record[i])
}

// float returns NaN for empty or missing cells.
func (c *cellReader) float(col string) float64 {
	s := c.text(col)
	if s == "" || c.err != nil {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.err = fmt.Errorf("column %s: %w", col, err)
		return math.NaN()
	}
	return v
}

func (c *cellReader) floatOr(col string, def float64) float64 {
	if v := c.float(col); !math.IsNaN(v) {
		return v
	}
	return def
}

func (c *cellReader) optional(col string) *float64 {
	if v := c.float(col); !math.IsNaN(v) {
		return &v
	}
	return nil
}

func (c *cellReader) int(col string) int {
	v := c.float(col)
	if math.IsNaN(v) {
		return 0
	}
	return int(v)
}

func parseRecord(record []string, index map[string]int) (models.FeatureRow, error) {
	c := &cellReader{record: record, index: index}
	kind, err := models.ParseSessionKind(c.text(models.ColSessionType))
	if err != nil {
		return models.FeatureRow{}, err
	}
	row := models.FeatureRow{
		DriverID:            c.text(models.ColDriver),
		ConstructorID:       c.text(models.ColTeam),
		SeasonYear:          c.int(models.ColSeason),
		RoundNumber:         c.int(models.ColRoundNumber),
		Circuit:             c.text(models.ColCircuit),
		TrackTemp:           c.floatOr(models.ColTrackTemp, 25.0),
		OvertakeDifficulty:  int(c.floatOr(models.ColOvertakeDifficulty, 5)),
		DriverAvgPos:        c.float(models.ColDriverAvgPos),
		DriverDNFRate:       c.floatOr(models.ColDriverDNFRate, 0),
		QualiDeltaTeammate:  c.floatOr(models.ColQualiDeltaTeammate, 0),
		ReliabilityScore:    c.floatOr(models.ColReliabilityScore, 1.0),
		ConstructorStanding: c.float(models.ColConstructorStanding),
		GridPosition:        c.optional(models.ColGridPosition),
		RacePace:            c.optional(models.ColRacePace),
		TireDegradation:     c.optional(models.ColTireDegradation),
		TopSpeed:            c.optional(models.ColTopSpeed),
		RainProbability:     c.floatOr(models.ColRainProbability, 0),
		TargetPosition:      c.optional(models.ColTargetPosition),
		SessionKind:         kind,
	}
	if c.err != nil {
		return models.FeatureRow{}, c.err
	}
	if err := row.Validate(); err != nil {
		return models.FeatureRow{}, err
	}
	return row, nil
}

// chronological returns the distinct seasons in ascending order without
// touching the caller's slice.
func chronological(seasons []int) []int {
	out := append([]int(nil), seasons...)
	sort.Ints(out)
	n := 0
	for i, season := range out {
		if i > 0 && season == out[n-1] {
			continue
		}
		out[n] = season
		n++
	}
	return out[:n]
}

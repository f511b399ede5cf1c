package features

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/models"
)

const (
	// DefaultMinStintLaps is the minimum stint length counted as a long run.
	DefaultMinStintLaps = 5
	// DefaultQuickLapThreshold keeps laps within 107% of the driver's best.
	DefaultQuickLapThreshold = 1.07
)

// PracticePace is the practice-derived feature set for one driver. Nil
// pointers mean the feature could not be derived.
type PracticePace struct {
	RacePace        *float64
	TireDegradation *float64
	TopSpeed        *float64
	RainProbability float64
}

// PracticeCalculator derives long-run pace, tyre degradation, top speed and
// rain share from a practice session.
type PracticeCalculator struct {
	minLaps   int
	threshold float64
	logger    *logrus.Logger
}

// NewPracticeCalculator creates a calculator. Non-positive arguments fall
// back to the defaults.
func NewPracticeCalculator(minLaps int, threshold float64, logger *logrus.Logger) *PracticeCalculator {
	if minLaps <= 0 {
		minLaps = DefaultMinStintLaps
	}
	if threshold <= 1 {
		threshold = DefaultQuickLapThreshold
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PracticeCalculator{minLaps: minLaps, threshold: threshold, logger: logger}
}

// RainProbability is the share of weather samples reporting rainfall.
func RainProbability(samples []models.WeatherSample) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	wet := 0
	for _, s := range samples {
		if s.Rainfall {
			wet++
		}
	}
	return float64(wet) / float64(len(samples))
}

// Calculate derives the practice features for driver. It never fails: any
// internal error degrades to a result carrying only the rain share.
func (c *PracticeCalculator) Calculate(laps []models.Lap, weather []models.WeatherSample, driver string) (pace PracticePace) {
	rain := RainProbability(weather)
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logrus.Fields{
				"driver": driver,
				"error":  fmt.Sprint(r),
			}).Warn("Practice pace calculation failed")
			pace = PracticePace{RainProbability: rain}
		}
	}()

	pace.RainProbability = rain
	driverLaps := models.LapsForDriver(laps, driver)
	if len(driverLaps) == 0 {
		return pace
	}

	pace.TopSpeed = topSpeed(driverLaps)

	quick := c.quickLaps(driverLaps)
	if len(quick) == 0 {
		return pace
	}

	var paces, slopes []float64
	for _, stint := range groupStints(quick) {
		if len(stint) < c.minLaps {
			continue
		}
		times := make([]float64, len(stint))
		for i, lap := range stint {
			times[i], _ = lap.Seconds()
		}
		paces = append(paces, mean(times))
		if len(times) > 1 {
			slopes = append(slopes, slope(times))
		}
	}

	if len(paces) > 0 {
		racePace := mean(paces)
		deg := 0.0
		if len(slopes) > 0 {
			deg = mean(slopes)
		}
		pace.RacePace = &racePace
		pace.TireDegradation = &deg
	}
	return pace
}

// quickLaps keeps timed green-flag laps that are not pit laps and are within
// the threshold of the driver's fastest lap.
func (c *PracticeCalculator) quickLaps(laps []models.Lap) []models.Lap {
	best, ok := models.FastestLap(laps)
	if !ok {
		return nil
	}
	limit := best.LapTime.Seconds() * c.threshold

	out := make([]models.Lap, 0, len(laps))
	for _, lap := range laps {
		secs, timed := lap.Seconds()
		if !timed || lap.PitInLap || lap.PitOutLap {
			continue
		}
		if lap.TrackStatus != models.GreenFlagStatus {
			continue
		}
		if secs > limit {
			continue
		}
		out = append(out, lap)
	}
	return out
}

// topSpeed prefers the speed trap, falling back to the fastest lap's
// telemetry maximum.
func topSpeed(laps []models.Lap) *float64 {
	var best *float64
	for _, lap := range laps {
		if lap.SpeedTrap == nil {
			continue
		}
		if best == nil || *lap.SpeedTrap > *best {
			v := *lap.SpeedTrap
			best = &v
		}
	}
	if best != nil {
		return best
	}
	fastest, ok := models.FastestLap(laps)
	if !ok || fastest.MaxSpeed == nil {
		return nil
	}
	v := *fastest.MaxSpeed
	return &v
}

// groupStints groups laps by stint id in order of first appearance.
func groupStints(laps []models.Lap) [][]models.Lap {
	index := make(map[int]int)
	var stints [][]models.Lap
	for _, lap := range laps {
		i, ok := index[lap.Stint]
		if !ok {
			i = len(stints)
			index[lap.Stint] = i
			stints = append(stints, nil)
		}
		stints[i] = append(stints[i], lap)
	}
	return stints
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// slope is the least-squares slope of values against their index.
func slope(values []float64) float64 {
	n := float64(len(values))
	mx := (n - 1) / 2
	my := mean(values)
	var num, den float64
	for i, y := range values {
		dx := float64(i) - mx
		num += dx * (y - my)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

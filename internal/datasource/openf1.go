package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/f1-predictor/internal/models"
)

const (
	openF1Source         = "openf1"
	DefaultOpenF1BaseURL = "https://api.openf1.org/v1"
)

// OpenF1 session names mapped onto session kinds. Sprint qualifying
// sessions are not used by the pipeline.
var openF1SessionKinds = map[string]models.SessionKind{
	"Practice 1": models.SessionPractice1,
	"Practice 2": models.SessionPractice2,
	"Practice 3": models.SessionPractice3,
	"Qualifying": models.SessionQualifying,
	"Sprint":     models.SessionSprint,
	"Race":       models.SessionRace,
}

type openF1Meeting struct {
	MeetingKey       int    `json:"meeting_key"`
	MeetingName      string `json:"meeting_name"`
	Location         string `json:"location"`
	CountryName      string `json:"country_name"`
	CircuitShortName string `json:"circuit_short_name"`
	DateStart        string `json:"date_start"`
	Year             int    `json:"year"`
}

type openF1Session struct {
	SessionKey  int    `json:"session_key"`
	SessionName string `json:"session_name"`
	SessionType string `json:"session_type"`
	DateStart   string `json:"date_start"`
	MeetingKey  int    `json:"meeting_key"`
	Year        int    `json:"year"`
}

type openF1Driver struct {
	DriverNumber int    `json:"driver_number"`
	NameAcronym  string `json:"name_acronym"`
	TeamName     string `json:"team_name"`
	FullName     string `json:"full_name"`
}

type openF1Result struct {
	Position     *int            `json:"position"`
	DriverNumber int             `json:"driver_number"`
	NumberOfLaps int             `json:"number_of_laps"`
	DNF          bool            `json:"dnf"`
	DNS          bool            `json:"dns"`
	DSQ          bool            `json:"dsq"`
	GapToLeader  json.RawMessage `json:"gap_to_leader"`
}

type openF1GridEntry struct {
	Position     int `json:"position"`
	DriverNumber int `json:"driver_number"`
}

type openF1Lap struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	LapDuration  *float64 `json:"lap_duration"`
	IsPitOutLap  bool     `json:"is_pit_out_lap"`
	DateStart    string   `json:"date_start"`
	I1Speed      *float64 `json:"i1_speed"`
	I2Speed      *float64 `json:"i2_speed"`
	STSpeed      *float64 `json:"st_speed"`
}

type openF1Stint struct {
	DriverNumber int `json:"driver_number"`
	StintNumber  int `json:"stint_number"`
	LapStart     int `json:"lap_start"`
	LapEnd       int `json:"lap_end"`
}

type openF1Pit struct {
	DriverNumber int `json:"driver_number"`
	LapNumber    int `json:"lap_number"`
}

type openF1Weather struct {
	Date             string  `json:"date"`
	AirTemperature   float64 `json:"air_temperature"`
	TrackTemperature float64 `json:"track_temperature"`
	Rainfall         float64 `json:"rainfall"`
}

type openF1RaceControl struct {
	Date         string `json:"date"`
	Category     string `json:"category"`
	Flag         string `json:"flag"`
	Message      string `json:"message"`
	Scope        string `json:"scope"`
	DriverNumber *int   `json:"driver_number"`
}

// OpenF1Client implements SessionProvider over the OpenF1 REST API.
type OpenF1Client struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	logger     *logrus.Entry

	mu        sync.Mutex
	schedules map[int][]models.EventMetadata
}

// NewOpenF1Client creates a new OpenF1 client
func NewOpenF1Client(httpClient *RateLimitedHTTPClient, baseURL string, logger *logrus.Logger) *OpenF1Client {
	if baseURL == "" {
		baseURL = DefaultOpenF1BaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &OpenF1Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.WithField("component", "openf1"),
		schedules:  make(map[int][]models.EventMetadata),
	}
}

// Name returns the data source name
func (c *OpenF1Client) Name() string {
	return openF1Source
}

// Schedule returns the season's events ordered by round. Testing meetings
// are excluded before rounds are numbered.
func (c *OpenF1Client) Schedule(ctx context.Context, year int) ([]models.EventMetadata, error) {
	c.mu.Lock()
	if cached, ok := c.schedules[year]; ok {
		c.mu.Unlock()
		return append([]models.EventMetadata(nil), cached...), nil
	}
	c.mu.Unlock()

	var meetings []openF1Meeting
	if err := c.fetch(ctx, "meetings", url.Values{"year": {strconv.Itoa(year)}}, &meetings); err != nil {
		return nil, err
	}
	var sessions []openF1Session
	if err := c.fetch(ctx, "sessions", url.Values{"year": {strconv.Itoa(year)}}, &sessions); err != nil {
		return nil, err
	}

	schedule := buildSchedule(year, meetings, sessions)

	c.mu.Lock()
	c.schedules[year] = schedule
	c.mu.Unlock()
	return append([]models.EventMetadata(nil), schedule...), nil
}

// NextEvent returns the first event whose race has not started at now,
// looking into the following season when the current one is over.
func (c *OpenF1Client) NextEvent(ctx context.Context, now time.Time) (*models.EventMetadata, error) {
	for _, year := range []int{now.Year(), now.Year() + 1} {
		schedule, err := c.Schedule(ctx, year)
		if err != nil {
			return nil, err
		}
		if e, ok := NextFrom(schedule, now); ok {
			return &e, nil
		}
	}
	return nil, ErrNoUpcomingEvent
}

// Load fetches one session with classification, laps and weather. A
// scheduled session that has not run yet is returned with an empty
// classification.
func (c *OpenF1Client) Load(ctx context.Context, year int, event string, kind models.SessionKind) (*models.Session, error) {
	schedule, err := c.Schedule(ctx, year)
	if err != nil {
		return nil, err
	}
	meta, err := FindEvent(schedule, event)
	if err != nil {
		return nil, NewDataSourceError(openF1Source, ErrCodeNotFound, fmt.Sprintf("%d %q", year, event), err)
	}
	key, ok := meta.SessionKeys[kind]
	if !ok {
		return nil, NewDataSourceError(openF1Source, ErrCodeNotFound,
			fmt.Sprintf("%s has no %s session", meta.EventName, kind.Code()), ErrSessionNotFound)
	}

	params := url.Values{"session_key": {strconv.Itoa(key)}}
	var (
		drivers []openF1Driver
		results []openF1Result
		grid    []openF1GridEntry
		laps    []openF1Lap
		stints  []openF1Stint
		pits    []openF1Pit
		weather []openF1Weather
		control []openF1RaceControl
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.fetch(gctx, "drivers", params, &drivers) })
	g.Go(func() error { return c.fetch(gctx, "laps", params, &laps) })
	g.Go(func() error { return c.fetch(gctx, "stints", params, &stints) })
	g.Go(func() error { return c.fetch(gctx, "weather", params, &weather) })
	g.Go(func() error { return c.fetch(gctx, "race_control", params, &control) })
	g.Go(func() error { return c.fetch(gctx, "pit", params, &pits) })
	if !kind.IsPractice() {
		g.Go(func() error { return c.fetch(gctx, "session_result", params, &results) })
	}
	if kind == models.SessionRace || kind == models.SessionSprint {
		g.Go(func() error {
			// Starting grids are published late; a missing grid is not fatal.
			if err := c.fetch(gctx, "starting_grid", params, &grid); err != nil {
				c.logger.WithError(err).WithField("session_key", key).Debug("Starting grid unavailable")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byNumber := make(map[int]openF1Driver, len(drivers))
	for _, d := range drivers {
		byNumber[d.DriverNumber] = d
	}

	session := &models.Session{
		Metadata:       meta,
		Kind:           kind,
		Key:            key,
		Classification: buildClassification(meta, kind, byNumber, results, grid, control),
		Laps:           buildLaps(byNumber, laps, stints, pits, control),
		Weather:        buildWeather(weather),
	}

	c.logger.WithFields(logrus.Fields{
		"season":  year,
		"event":   meta.EventName,
		"session": kind.Code(),
		"results": len(session.Classification),
		"laps":    len(session.Laps),
	}).Debug("Session loaded")
	return session, nil
}

// fetch GETs endpoint and decodes the JSON array into out. OpenF1 answers a
// query without matches with 404, which is decoded as an empty result.
func (c *OpenF1Client) fetch(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	resp, err := c.httpClient.Get(ctx, u)
	if err != nil {
		return NewDataSourceError(openF1Source, ErrCodeNetworkError, "failed to fetch "+endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(openF1Source, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(openF1Source, ErrCodeServerError,
			fmt.Sprintf("%s: unexpected status %d: %s", endpoint, resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(openF1Source, ErrCodeInvalidData, "failed to parse "+endpoint, err)
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func buildSchedule(year int, meetings []openF1Meeting, sessions []openF1Session) []models.EventMetadata {
	sort.SliceStable(meetings, func(i, j int) bool {
		return parseTime(meetings[i].DateStart).Before(parseTime(meetings[j].DateStart))
	})

	byMeeting := make(map[int][]openF1Session)
	for _, s := range sessions {
		byMeeting[s.MeetingKey] = append(byMeeting[s.MeetingKey], s)
	}

	schedule := make([]models.EventMetadata, 0, len(meetings))
	for _, m := range meetings {
		if strings.Contains(strings.ToLower(m.MeetingName), "testing") {
			continue
		}
		meta := models.EventMetadata{
			Season:      year,
			RoundNumber: len(schedule) + 1,
			MeetingKey:  m.MeetingKey,
			EventName:   m.MeetingName,
			Location:    m.Location,
			Circuit:     m.CircuitShortName,
			Country:     m.CountryName,
			Format:      models.FormatConventional,
			Sessions:    make(map[models.SessionKind]time.Time),
			SessionKeys: make(map[models.SessionKind]int),
		}
		for _, s := range byMeeting[m.MeetingKey] {
			kind, ok := openF1SessionKinds[s.SessionName]
			if !ok {
				continue
			}
			meta.Sessions[kind] = parseTime(s.DateStart)
			meta.SessionKeys[kind] = s.SessionKey
			if kind == models.SessionSprint {
				meta.Format = models.FormatSprint
			}
		}
		schedule = append(schedule, meta)
	}
	return schedule
}

// statusFor derives a classification status text. OpenF1 does not publish
// retirement causes, so race control messages naming the car are searched
// for a mechanical keyword.
func statusFor(r openF1Result, causes map[int]string) string {
	switch {
	case r.DSQ:
		return "Disqualified"
	case r.DNS:
		return "Did not start"
	case r.DNF:
		if cause, ok := causes[r.DriverNumber]; ok {
			return cause
		}
		return "Retired"
	}
	var gap string
	if err := json.Unmarshal(r.GapToLeader, &gap); err == nil {
		gap = strings.ToUpper(strings.TrimSpace(gap))
		if strings.HasSuffix(gap, "LAP") || strings.HasSuffix(gap, "LAPS") {
			n := strings.Fields(strings.TrimPrefix(gap, "+"))
			if len(n) > 0 {
				if n[0] == "1" {
					return "+1 Lap"
				}
				return "+" + n[0] + " Laps"
			}
		}
	}
	return "Finished"
}

var mechanicalCauses = []struct{ keyword, status string }{
	{"ENGINE", "Engine"},
	{"POWER UNIT", "Engine"},
	{"GEARBOX", "Gearbox"},
	{"HYDRAULIC", "Hydraulics"},
	{"MECHANICAL", "Mechanical"},
}

func retirementCauses(control []openF1RaceControl) map[int]string {
	causes := make(map[int]string)
	for _, rc := range control {
		if rc.DriverNumber == nil {
			continue
		}
		msg := strings.ToUpper(rc.Message)
		for _, mc := range mechanicalCauses {
			if strings.Contains(msg, mc.keyword) {
				causes[*rc.DriverNumber] = mc.status
				break
			}
		}
	}
	return causes
}

func buildClassification(meta models.EventMetadata, kind models.SessionKind, drivers map[int]openF1Driver,
	results []openF1Result, grid []openF1GridEntry, control []openF1RaceControl) []models.SessionResult {
	if len(results) == 0 {
		return nil
	}
	sort.SliceStable(results, func(i, j int) bool {
		pi, pj := results[i].Position, results[j].Position
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})

	gridPos := make(map[int]int, len(grid))
	for _, g := range grid {
		gridPos[g.DriverNumber] = g.Position
	}
	causes := retirementCauses(control)

	out := make([]models.SessionResult, 0, len(results))
	for _, r := range results {
		d, ok := drivers[r.DriverNumber]
		if !ok || d.NameAcronym == "" {
			continue
		}
		res := models.SessionResult{
			DriverID:      d.NameAcronym,
			DriverNumber:  strconv.Itoa(r.DriverNumber),
			ConstructorID: d.TeamName,
			RoundNumber:   meta.RoundNumber,
			SeasonYear:    meta.Season,
			Kind:          kind,
			StatusText:    statusFor(r, causes),
		}
		if r.Position != nil && !r.DNF && !r.DNS && !r.DSQ {
			res.FinishingPosition = models.IntPtr(*r.Position)
		}
		if g, ok := gridPos[r.DriverNumber]; ok && g > 0 {
			res.GridPosition = models.IntPtr(g)
		}
		out = append(out, res)
	}
	return out
}

// statusWindow is a period of non-green track status.
type statusWindow struct {
	start, end time.Time
	code       string
}

// trackStatusWindows derives neutralisation windows from track-wide race
// control messages using the timing status codes: 2 yellow, 4 safety car,
// 5 red flag, 6 virtual safety car.
func trackStatusWindows(control []openF1RaceControl) []statusWindow {
	sorted := append([]openF1RaceControl(nil), control...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return parseTime(sorted[i].Date).Before(parseTime(sorted[j].Date))
	})

	var windows []statusWindow
	var open *statusWindow
	closeAt := func(t time.Time) {
		if open != nil {
			open.end = t
			windows = append(windows, *open)
			open = nil
		}
	}
	for _, rc := range sorted {
		at := parseTime(rc.Date)
		msg := strings.ToUpper(rc.Message)
		code := ""
		switch {
		case strings.Contains(msg, "VIRTUAL SAFETY CAR DEPLOYED"):
			code = "6"
		case strings.Contains(msg, "SAFETY CAR DEPLOYED"):
			code = "4"
		case rc.Flag == "RED":
			code = "5"
		case rc.Flag == "YELLOW" && rc.Scope == "Track", rc.Flag == "DOUBLE YELLOW" && rc.Scope == "Track":
			code = "2"
		case rc.Flag == "GREEN" || (rc.Flag == "CLEAR" && rc.Scope == "Track") ||
			strings.Contains(msg, "SAFETY CAR IN THIS LAP") || strings.Contains(msg, "VIRTUAL SAFETY CAR ENDING"):
			closeAt(at)
			continue
		default:
			continue
		}
		closeAt(at)
		open = &statusWindow{start: at, code: code}
	}
	if open != nil {
		open.end = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
		windows = append(windows, *open)
	}
	return windows
}

func lapTrackStatus(start time.Time, duration *float64, windows []statusWindow) string {
	if start.IsZero() {
		return models.GreenFlagStatus
	}
	end := start
	if duration != nil {
		end = start.Add(time.Duration(*duration * float64(time.Second)))
	}
	for _, w := range windows {
		if start.Before(w.end) && end.After(w.start) {
			return w.code
		}
	}
	return models.GreenFlagStatus
}

func buildLaps(drivers map[int]openF1Driver, laps []openF1Lap, stints []openF1Stint, pits []openF1Pit, control []openF1RaceControl) []models.Lap {
	windows := trackStatusWindows(control)

	pitIn := make(map[[2]int]bool, len(pits))
	for _, p := range pits {
		pitIn[[2]int{p.DriverNumber, p.LapNumber}] = true
	}

	stintOf := func(driver, lap int) int {
		for _, s := range stints {
			if s.DriverNumber == driver && lap >= s.LapStart && (s.LapEnd == 0 || lap <= s.LapEnd) {
				return s.StintNumber
			}
		}
		return 0
	}

	out := make([]models.Lap, 0, len(laps))
	for _, l := range laps {
		d, ok := drivers[l.DriverNumber]
		if !ok || d.NameAcronym == "" {
			continue
		}
		start := parseTime(l.DateStart)
		lap := models.Lap{
			DriverID:    d.NameAcronym,
			LapNumber:   l.LapNumber,
			Stint:       stintOf(l.DriverNumber, l.LapNumber),
			TrackStatus: lapTrackStatus(start, l.LapDuration, windows),
			SpeedTrap:   l.STSpeed,
			MaxSpeed:    maxSpeed(l.I1Speed, l.I2Speed, l.STSpeed),
			PitInLap:    pitIn[[2]int{l.DriverNumber, l.LapNumber}],
			PitOutLap:   l.IsPitOutLap,
			StartedAt:   start,
		}
		if l.LapDuration != nil && *l.LapDuration > 0 {
			lap.LapTime = models.LapDuration(*l.LapDuration)
		}
		out = append(out, lap)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DriverID != out[j].DriverID {
			return out[i].DriverID < out[j].DriverID
		}
		return out[i].LapNumber < out[j].LapNumber
	})
	return out
}

func maxSpeed(speeds ...*float64) *float64 {
	var best *float64
	for _, s := range speeds {
		if s != nil && (best == nil || *s > *best) {
			v := *s
			best = &v
		}
	}
	return best
}

func buildWeather(samples []openF1Weather) []models.WeatherSample {
	out := make([]models.WeatherSample, 0, len(samples))
	for _, w := range samples {
		out = append(out, models.WeatherSample{
			Time:      parseTime(w.Date),
			TrackTemp: w.TrackTemperature,
			AirTemp:   w.AirTemperature,
			Rainfall:  w.Rainfall > 0,
		})
	}
	return out
}

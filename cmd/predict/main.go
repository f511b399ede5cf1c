package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/f1-predictor/internal/config"
	"github.com/yourusername/f1-predictor/internal/database"
	"github.com/yourusername/f1-predictor/internal/datasource"
	"github.com/yourusername/f1-predictor/internal/estimator"
	"github.com/yourusername/f1-predictor/internal/health"
	applogger "github.com/yourusername/f1-predictor/internal/logger"
	"github.com/yourusername/f1-predictor/internal/metrics"
	"github.com/yourusername/f1-predictor/internal/models"
	"github.com/yourusername/f1-predictor/internal/predictor"
	"github.com/yourusername/f1-predictor/internal/processor"
	"github.com/yourusername/f1-predictor/internal/repository"
	"github.com/yourusername/f1-predictor/internal/scheduler"
	"github.com/yourusername/f1-predictor/internal/weather"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const jobTimeout = 5 * time.Minute

var (
	configFile string
	realtime   bool
	jsonOutput bool
	driverList []string
	rain       float64

	logger *logrus.Logger
	cfg    *config.Config
	db     *database.DB
	repos  *repository.Repositories
	pred   *predictor.Predictor
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the prediction run as JSON")
	rootCmd.PersistentFlags().Float64Var(&rain, "rain", 0, "Rain probability override in [0,1]")
	rootCmd.Flags().BoolVar(&realtime, "realtime", false, "Predict the next scheduled session")

	raceCmd.Flags().StringSliceVar(&driverList, "drivers", nil, "Driver codes to predict, defaults to the qualifying field")

	rootCmd.AddCommand(driverCmd, raceCmd, watchCmd, latestCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "predict [driver]",
	Short: "Predict qualifying, sprint and race results",
	Long: `Runs the trained models against a race weekend. With --realtime the next
scheduled event is located and predicted according to its state: before
qualifying from rolling form only, afterwards from the actual grid, practice
pace and the weather forecast.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = applogger.NewLogger(cfg.App.LogLevel)
		if cmd.Flags().Changed("rain") && (rain < 0 || rain > 1) {
			return fmt.Errorf("--rain must be within [0,1], got %v", rain)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !realtime {
			return cmd.Help()
		}
		driver := ""
		if len(args) == 1 {
			driver = strings.ToUpper(args[0])
		}
		return withPredictor(cmd, func(ctx context.Context) error {
			run, err := pred.PredictNextSession(ctx, driver, rainOverride(cmd))
			if err != nil {
				return err
			}
			return printRun(run)
		})
	},
}

var driverCmd = &cobra.Command{
	Use:   "driver <code> <season> <event>",
	Short: "Predict one driver at an event",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := strings.ToUpper(args[0])
		season, err := parseSeason(args[1])
		if err != nil {
			return err
		}
		return withPredictor(cmd, func(ctx context.Context) error {
			run, err := pred.PredictRace(ctx, season, args[2], nil, rainOverride(cmd))
			if err != nil {
				return err
			}
			rec, ok := run.Find(code)
			if !ok {
				return fmt.Errorf("%s: %w", code, predictor.ErrDriverNotFound)
			}
			run.Records = []models.PredictionRecord{*rec}
			return printRun(run)
		})
	},
}

var raceCmd = &cobra.Command{
	Use:   "race <season> <event>",
	Short: "Predict the full field at an event",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		season, err := parseSeason(args[0])
		if err != nil {
			return err
		}
		drivers := make([]string, 0, len(driverList))
		for _, d := range driverList {
			drivers = append(drivers, strings.ToUpper(strings.TrimSpace(d)))
		}
		return withPredictor(cmd, func(ctx context.Context) error {
			run, err := pred.PredictRace(ctx, season, args[1], drivers, rainOverride(cmd))
			if err != nil {
				return err
			}
			return printRun(run)
		})
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest <season> <event>",
	Short: "Show the most recent stored prediction for an event",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		season, err := parseSeason(args[0])
		if err != nil {
			return err
		}
		if !cfg.Database.Enabled {
			return fmt.Errorf("latest requires database.enabled")
		}
		ctx := cmd.Context()
		defer closeDependencies()
		if err := connectDatabase(ctx); err != nil {
			return err
		}

		run, err := repos.Prediction.GetLatestForEvent(ctx, season, args[1])
		if err != nil {
			return err
		}
		return printRun(run)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Predict the next session on the configured cron schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPredictor(cmd, runWatch)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("predict %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.LoadSecretsFromEnv(cfg); err != nil {
		return err
	}
	return config.Validate(cfg)
}

// withPredictor builds the predictor, runs fn and releases the dependencies.
func withPredictor(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	defer closeDependencies()
	if err := setupDependencies(ctx); err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	return fn(ctx)
}

func setupDependencies(ctx context.Context) error {
	provider, err := datasource.NewSessionProvider(cfg.DataSource, logger)
	if err != nil {
		return err
	}

	set, err := estimator.LoadSet(cfg.Models.Dir, estimatorOptions(cfg.Models), logger)
	if err != nil {
		return fmt.Errorf("failed to load models from %s: %w", cfg.Models.Dir, err)
	}

	history, err := loadHistory(ctx)
	if err != nil {
		return err
	}

	var predictions repository.PredictionRepository
	if cfg.Database.Enabled {
		if err := connectDatabase(ctx); err != nil {
			return err
		}
		predictions = repos.Prediction
	}

	pred, err = predictor.New(predictor.Dependencies{
		Provider:   provider,
		Weather:    weather.NewProvider(cfg.Weather, logger),
		Models:     predictor.ModelsFromSet(set),
		History:    history,
		Repository: predictions,
		Features:   featureConfig(cfg.Features),
		Logger:     logger,
	})
	return err
}

func connectDatabase(ctx context.Context) error {
	var err error
	db, err = database.Initialize(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	repos, err = repository.NewRepositories(db)
	return err
}

func closeDependencies() {
	if db != nil {
		db.Close()
		db = nil
	}
}

// loadHistory reads the configured seasons' feature tables, or every table
// present in the feature directory when none are configured. The store
// returns them oldest first so reliability windows see races in order.
func loadHistory(ctx context.Context) ([]models.FeatureRow, error) {
	store := repository.NewCSVFeatureRepository(cfg.History.FeatureDir)
	seasons := cfg.History.Seasons
	if len(seasons) == 0 {
		var err error
		if seasons, err = store.Seasons(); err != nil {
			return nil, err
		}
	}
	rows, err := store.LoadSeasons(ctx, seasons)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature history: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"seasons": seasons,
		"rows":    len(rows),
	}).Debug("Feature history loaded")
	return rows, nil
}

func runWatch(ctx context.Context) error {
	metrics.InitRegistry()

	sched := scheduler.NewScheduler(logger)
	job := func(jobCtx context.Context) error {
		run, err := pred.PredictNextSession(jobCtx, "", nil)
		if err != nil {
			return err
		}
		return printRun(run)
	}
	if err := sched.ScheduleRealtime(cfg.Scheduler.Cron, jobTimeout, job); err != nil {
		return err
	}

	var server *health.Server
	if cfg.Metrics.Enabled {
		checks := map[string]health.Check{
			"scheduler": func(context.Context) error {
				_, err := sched.LastRun()
				return err
			},
		}
		if db != nil {
			checks["database"] = db.Ping
		}
		server = health.NewServer(health.Config{
			ServiceName: "f1-predictor",
			Addr:        ":" + strconv.Itoa(cfg.Metrics.Port),
			MetricsPath: cfg.Metrics.Path,
			Checks:      checks,
			Logger:      logger,
		})
		if err := server.Start(ctx); err != nil {
			return err
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}
	if server != nil {
		server.SetReady(true)
	}

	// Predict once on startup rather than waiting for the first tick.
	if err := sched.RunNow(jobTimeout, job); err != nil {
		logger.WithError(err).Warn("Initial prediction failed")
	}

	logger.WithFields(logrus.Fields{
		"cron":     cfg.Scheduler.Cron,
		"next_run": sched.GetNextRun().Format(time.RFC3339),
	}).Info("Watching for upcoming sessions")

	<-ctx.Done()
	logger.Info("Shutting down")
	if server != nil {
		server.SetReady(false)
	}
	return sched.Stop()
}

func printRun(run *models.PredictionRun) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("\n%d %s (%s)\n", run.Season, run.Event, run.State)
	fmt.Printf("%-4s %-6s %10s %-14s %10s\n", "POS", "DRIVER", "QUALI", "SPRINT", "SCORE")
	for _, r := range run.Records {
		fmt.Printf("%-4d %-6s %10.2f %-14s %10.3f\n",
			r.PredictedPosition, r.DriverID, r.QualifyingPosition, r.SprintClass, r.RaceScore)
	}
	fmt.Printf("run %s\n", run.ID)
	return nil
}

func rainOverride(cmd *cobra.Command) *float64 {
	if !cmd.Flags().Changed("rain") {
		return nil
	}
	v := rain
	return &v
}

func parseSeason(s string) (int, error) {
	season, err := strconv.Atoi(s)
	if err != nil || season < 1950 || season > 2100 {
		return 0, fmt.Errorf("invalid season %q", s)
	}
	return season, nil
}

func featureConfig(f config.FeaturesConfig) processor.Config {
	return processor.Config{
		RecentWindow:              f.RecentWindow,
		ReliabilityWindow:         f.ReliabilityWindow,
		MinStintLaps:              f.MinStintLaps,
		QuickLapThreshold:         f.QuickLapThreshold,
		DefaultTrackTemp:          f.DefaultTrackTemp,
		DefaultOvertakeDifficulty: f.DefaultOvertakeDifficulty,
	}
}

func estimatorOptions(m config.ModelsConfig) estimator.Options {
	return estimator.Options{
		LearningRate:   m.LearningRate,
		Regularization: m.Regularization,
		MaxIterations:  m.MaxIterations,
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/f1-predictor/internal/config"
	"github.com/yourusername/f1-predictor/internal/database"
	"github.com/yourusername/f1-predictor/internal/datasource"
	"github.com/yourusername/f1-predictor/internal/estimator"
	applogger "github.com/yourusername/f1-predictor/internal/logger"
	"github.com/yourusername/f1-predictor/internal/processor"
	"github.com/yourusername/f1-predictor/internal/repository"
	"github.com/yourusername/f1-predictor/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	seasons    []int
	inputs     []string
	skipTrain  bool
	fromStore  bool

	logger *logrus.Logger
	cfg    *config.Config
	db     *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().IntSliceVarP(&seasons, "seasons", "s", nil, "Seasons to ingest, e.g. --seasons 2022,2023")
	rootCmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "Train from existing feature CSV files instead of ingesting")
	rootCmd.Flags().BoolVar(&skipTrain, "skip-train", false, "Only extract features, do not train")
	rootCmd.Flags().BoolVar(&fromStore, "from-store", false, "Train from the Postgres feature store for --seasons")
	rootCmd.MarkFlagsMutuallyExclusive("input", "from-store")
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "train",
	Short: "Extract race weekend features and train the prediction models",
	Long: `Ingests every event of the requested seasons in round order, writes one
features_<year>.csv per season and trains the qualifying, sprint and race
models on the union. Existing feature tables can be used instead with --input.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = applogger.NewLogger(cfg.App.LogLevel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(seasons) == 0 && len(inputs) == 0 {
			return fmt.Errorf("either --seasons or --input is required")
		}
		if fromStore && !cfg.Database.Enabled {
			return fmt.Errorf("--from-store requires database.enabled")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		defer closeDependencies()
		svc, err := setupDependencies(ctx)
		if err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}

		return runTraining(ctx, svc)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("train %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
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

func setupDependencies(ctx context.Context) (*service.TrainingService, error) {
	provider, err := datasource.NewSessionProvider(cfg.DataSource, logger)
	if err != nil {
		return nil, err
	}

	assembler := processor.NewAssembler(featureConfig(cfg.Features), logger)
	features := repository.NewCSVFeatureRepository(cfg.History.FeatureDir)

	var mirror repository.FeatureRepository
	if cfg.Database.Enabled {
		db, err = database.Initialize(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			return nil, err
		}
		mirror = repos.Feature
	}

	trainer := estimator.NewTrainer(cfg.Models.Dir, estimatorOptions(cfg.Models), logger)
	return service.NewTrainingService(provider, assembler, features, mirror, trainer, cfg.Models.Dir, logger), nil
}

func closeDependencies() {
	if db != nil {
		db.Close()
	}
}

func runTraining(ctx context.Context, svc *service.TrainingService) error {
	start := time.Now()

	switch {
	case len(inputs) > 0:
		report, err := svc.TrainFromFiles(inputs)
		if err != nil {
			return err
		}
		printTraining(report)
	case fromStore:
		report, err := svc.TrainFromStore(ctx, seasons)
		if err != nil {
			return err
		}
		printTraining(report)
	default:
		report, err := svc.Run(ctx, service.RunOptions{Seasons: seasons, SkipTrain: skipTrain})
		if err != nil {
			return err
		}
		for _, s := range report.Seasons {
			fmt.Printf("Season %d: %d events, %d rows, %d sessions skipped -> %s\n",
				s.Season, s.Events, s.Rows, s.Skipped, s.Path)
			if len(s.Standings) > 0 {
				fmt.Printf("  constructors' leader: %s (%s pts)\n", s.Standings[0].Team, s.Standings[0].Points)
			}
		}
		fmt.Printf("Total feature rows: %d\n", report.Rows)
		if report.Training != nil {
			printTraining(report.Training)
		}
	}

	logger.WithField("duration", time.Since(start).String()).Info("Training run completed")
	return nil
}

func printTraining(report *estimator.TrainingReport) {
	fmt.Printf("Models written to %s\n", cfg.Models.Dir)
	trained := make(map[string]bool, len(report.Trained))
	for _, name := range report.Trained {
		trained[name] = true
	}
	for _, name := range []string{estimator.QualifyingModelName, estimator.SprintModelName, estimator.RaceModelName} {
		status := "skipped"
		if trained[name] {
			status = "trained"
		}
		fmt.Printf("  %-10s %6d rows  %s\n", name, report.Rows[name], status)
	}
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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ema-tidy/config"
	"ema-tidy/models"
	"ema-tidy/services"
	"ema-tidy/storage"
	"ema-tidy/utils"
)

var errParticipantsFailed = errors.New("one or more participants failed")

type flags struct {
	envFile           string
	inputDir          string
	outputDir         string
	workers           int
	failFast          bool
	dropPartialGroups bool
	summaryPath       string
	verbose           bool
}

func main() {
	if err := newRootCmd(&flags{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ema-tidy",
		Short: "Convert paired Daily/Evening EMA exports into one tidy TSV per participant",
		Long: `ema-tidy reads every *Daily* export in the input directory together with
its *Evening* counterpart, reshapes both into one row per survey instance,
and writes {personID}_ema.tsv into the output directory.

Directories and options come from EMA_* environment variables (optionally
from a .env file); flags override them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.envFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			applyFlags(cmd, f, cfg)
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.envFile, "env-file", "", "path to a .env file (default .env)")
	fl.StringVar(&f.inputDir, "in", "", "input directory holding the raw exports (EMA_INPUT_DIR)")
	fl.StringVar(&f.outputDir, "out", "", "output directory for tidy files (EMA_OUTPUT_DIR)")
	fl.IntVar(&f.workers, "workers", 0, "participants processed concurrently (EMA_MAX_CONCURRENCY)")
	fl.BoolVar(&f.failFast, "fail-fast", false, "stop the batch at the first failing participant (EMA_FAIL_FAST)")
	fl.BoolVar(&f.dropPartialGroups, "drop-partial-groups", false, "drop an incomplete trailing row group instead of failing (EMA_DROP_PARTIAL_GROUPS)")
	fl.StringVar(&f.summaryPath, "summary", "", "write a YAML run summary to this path (EMA_SUMMARY_PATH)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging (EMA_VERBOSE)")
	return cmd
}

// applyFlags overrides cfg with flags the user actually set.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("in") {
		cfg.InputDir = f.inputDir
	}
	if changed("out") {
		cfg.OutputDir = f.outputDir
	}
	if changed("workers") {
		cfg.MaxConcurrency = f.workers
	}
	if changed("fail-fast") {
		cfg.FailFast = f.failFast
	}
	if changed("drop-partial-groups") {
		cfg.DropPartialGroups = f.dropPartialGroups
	}
	if changed("summary") {
		cfg.SummaryPath = f.summaryPath
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
}

// observationFetcher reads back a participant's mirrored rows.
type observationFetcher interface {
	FetchPerson(ctx context.Context, personID string) ([]*storage.Observation, error)
}

// verifyMirror compares the stored row count of every successful participant
// with what the pipeline produced, returning the number of mismatches.
func verifyMirror(ctx context.Context, fetcher observationFetcher, results []*models.ParticipantResult, logger *utils.Logger) int {
	mismatches := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		stored, err := fetcher.FetchPerson(ctx, r.PersonID)
		if err != nil {
			logger.Warn("[verify] %s: %v", r.PersonID, err)
			mismatches++
			continue
		}
		if want := r.DailyRows + r.EveningRows; len(stored) != want {
			logger.Warn("[verify] %s: %d rows in ema_observations, want %d", r.PersonID, len(stored), want)
			mismatches++
			continue
		}
		logger.Debug("[verify] %s: %d rows mirrored", r.PersonID, len(stored))
	}
	return mismatches
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := utils.NewLogger(cfg.Verbose)
	defer logger.Sync()

	runID := uuid.NewString()
	start := time.Now()

	logger.Info("=== EMA tidy run %s starting ===", runID)
	logger.Info("Config: in=%s | out=%s | header rows: %d | workers: %d | fail-fast: %t",
		cfg.InputDir, cfg.OutputDir, cfg.HeaderRows, cfg.MaxConcurrency, cfg.FailFast)

	tsvWriter, err := storage.NewTSVWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to prepare output directory: %v", err)
		return err
	}
	writers := []storage.TableWriter{tsvWriter}

	var pgWriter *storage.PostgresWriter
	if cfg.PostgresEnabled {
		retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
		pgWriter, err = storage.NewPostgresWriter(ctx, cfg.DSN(), runID, retry)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			return err
		}
		defer pgWriter.Close()
		writers = append(writers, pgWriter)
		logger.Info("Mirroring tidy rows to PostgreSQL (table: ema_observations)")
	}

	tidier := services.NewTidier(logger, cfg.DropPartialGroups)
	pipeline := services.NewPipeline(cfg, storage.ExportReader{}, tidier, logger, writers...)
	batch := services.NewBatch(cfg, storage.DirLister{}, pipeline, logger)

	results, total, runErr := batch.Run(ctx)
	if runErr != nil {
		logger.Error("%v", runErr)
	}
	if pgWriter != nil && cfg.Verbose {
		verifyMirror(ctx, pgWriter, results, logger)
	}

	summary := services.NewSummaryService(logger)
	report := summary.Generate(runID, cfg.InputDir, cfg.OutputDir, total, results, time.Since(start))
	summary.Print(os.Stdout, report)

	if cfg.SummaryPath != "" {
		if err := summary.WriteYAML(cfg.SummaryPath, report); err != nil {
			logger.Error("Summary write failed: %v", err)
		}
	}

	switch {
	case runErr != nil:
		return runErr
	case report.Failed > 0:
		return errParticipantsFailed
	}
	return nil
}

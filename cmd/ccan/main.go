// SPDX-License-Identifier: MIT

// ccan analyses the change-coupling of a git repository: which files change
// together, and which files are likely to ripple when others change.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ccan-dev/ccan/internal/analysis"
	"github.com/ccan-dev/ccan/internal/config"
	"github.com/ccan-dev/ccan/internal/log"
	"github.com/ccan-dev/ccan/internal/report"
	"github.com/ccan-dev/ccan/internal/store"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

const dateLayout = "2006-01-02"

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "serve" {
		os.Exit(runServe(args[1:]))
	}
	os.Exit(runAnalyze(args))
}

// bindCommonFlags wires the flags shared by both modes into cfg. Flag
// defaults come from the environment, so precedence is flag > env > default.
func bindCommonFlags(fs *flag.FlagSet, cfg *config.Config) (since, until, pSince, pUntil *string) {
	fs.StringVar(&cfg.Repository, "repository", cfg.Repository, "path to the git repository to analyse")
	fs.StringVar(&cfg.Branch, "branch", cfg.Branch, "branch to mine")
	fs.IntVar(&cfg.ChangesMin, "changes-min", cfg.ChangesMin, "minimum total changes for a file to be considered")
	fs.IntVar(&cfg.FreqMin, "freq-min", cfg.FreqMin, "minimum co-change frequency to keep")
	fs.StringVar(&cfg.Binning, "binning", cfg.Binning, "date binning: none, daily, weekly or monthly")
	fs.StringVar(&cfg.IncludeRegex, "include", cfg.IncludeRegex, "regex of file paths to include")
	fs.StringVar(&cfg.ExcludeRegex, "exclude", cfg.ExcludeRegex, "regex of file paths to exclude")
	fs.StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, "coupling algorithm: naive, bayes, mixed or nop")
	fs.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "worker count for the coupling computation (0 = all cores)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the history cache and run ledger")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "history cache entry lifetime")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	since = fs.String("since", cfg.Since.Format(dateLayout), "start of the commit window (YYYY-MM-DD)")
	until = fs.String("until", cfg.Until.Format(dateLayout), "end of the commit window (YYYY-MM-DD)")
	pSince = fs.String("predict-since", cfg.PredictSince.Format(dateLayout), "start of the prediction window (YYYY-MM-DD)")
	pUntil = fs.String("predict-until", cfg.PredictUntil.Format(dateLayout), "end of the prediction window (YYYY-MM-DD)")
	return since, until, pSince, pUntil
}

func applyDateFlags(cfg *config.Config, since, until, pSince, pUntil *string) error {
	for _, f := range []struct {
		raw  *string
		dest *time.Time
		name string
	}{
		{since, &cfg.Since, "since"},
		{until, &cfg.Until, "until"},
		{pSince, &cfg.PredictSince, "predict-since"},
		{pUntil, &cfg.PredictUntil, "predict-until"},
	} {
		t, err := time.Parse(dateLayout, *f.raw)
		if err != nil {
			return fmt.Errorf("invalid -%s %q: %w", f.name, *f.raw, err)
		}
		*f.dest = t
	}
	return nil
}

func buildOptions(cfg config.Config) (analysis.Options, error) {
	mine, err := cfg.MineOptions()
	if err != nil {
		return analysis.Options{}, err
	}
	cc, err := cfg.CoChangeOptions()
	if err != nil {
		return analysis.Options{}, err
	}
	predict, err := cfg.PredictOptions()
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{Mine: mine, CoChange: cc, Predict: predict}, nil
}

// openHistoryCache opens the badger cache; a broken cache degrades to
// uncached mining instead of failing the run.
func openHistoryCache(cfg config.Config) *store.HistoryCache {
	path := filepath.Join(cfg.DataDir, "history")
	hc, err := store.OpenHistoryCache(path, cfg.CacheTTL)
	if err != nil {
		logger := log.WithComponent("main")
		logger.Warn().
			Err(err).
			Str(log.FieldPath, path).
			Msg("history cache unavailable, mining without cache")
		return nil
	}
	return hc
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("ccan", flag.ExitOnError)
	cfg := config.FromEnv(nil)

	since, until, pSince, pUntil := bindCommonFlags(fs, &cfg)
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for the CSV reports")
	fs.BoolVar(&cfg.SkipPredict, "skip-predict", cfg.SkipPredict, "skip the ripple prediction")
	showVersion := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(args)

	if *showVersion {
		fmt.Printf("ccan %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Version: version})
	logger := log.WithComponent("main")

	if err := applyDateFlags(&cfg, since, until, pSince, pUntil); err != nil {
		logger.Error().Err(err).Msg("invalid arguments")
		return 2
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 2
	}
	opts, err := buildOptions(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := analysis.Deps{}
	if hc := openHistoryCache(cfg); hc != nil {
		deps.Cache = hc
		defer func() { _ = hc.Close() }()
	}

	logger.Info().
		Str(log.FieldEvent, "analyze.start").
		Str(log.FieldRepository, cfg.Repository).
		Msg("started analysing")

	a, res, err := analysis.Run(ctx, opts, deps)
	if err != nil {
		logger.Error().
			Err(err).
			Msgf("Failed in %dms", a.Duration.Milliseconds())
		return 1
	}

	reportOpts := report.Options{
		OutputDir:  cfg.OutputDir,
		Repository: cfg.Repository,
		Algorithm:  cfg.Algorithm,
		Binning:    cfg.Binning,
		ChangesMin: cfg.ChangesMin,
		FreqMin:    cfg.FreqMin,
	}
	logger.Info().
		Str(log.FieldEvent, "analyze.write_output").
		Str(log.FieldOutputDir, reportOpts.Dir()).
		Msg("writing output")
	if err := report.WriteAll(reportOpts, res.Changes, res.CoChanges, res.Ripples); err != nil {
		logger.Error().Err(err).Msg("could not write reports")
		return 1
	}

	if !cfg.SkipPredict {
		if err := res.Ripples.WriteTable(os.Stdout); err != nil {
			logger.Error().Err(err).Msg("could not print prediction table")
			return 1
		}
	}

	logger.Info().Msgf("Completed in %dms", a.Duration.Milliseconds())
	return 0
}

// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ccan-dev/ccan/internal/analysis"
	"github.com/ccan-dev/ccan/internal/api"
	"github.com/ccan-dev/ccan/internal/config"
	"github.com/ccan-dev/ccan/internal/log"
	"github.com/ccan-dev/ccan/internal/persistence/sqlite"
	"github.com/ccan-dev/ccan/internal/watch"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("ccan serve", flag.ExitOnError)
	cfg := config.FromEnv(nil)

	since, until, pSince, pUntil := bindCommonFlags(fs, &cfg)
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	fs.IntVar(&cfg.RateLimitRPM, "rate-limit", cfg.RateLimitRPM, "analysis requests per minute per client")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "re-analyse automatically when the repository gains commits")
	_ = fs.Parse(args)

	log.Configure(log.Config{Level: cfg.LogLevel, Version: version})
	logger := log.WithComponent("main")

	if err := applyDateFlags(&cfg, since, until, pSince, pUntil); err != nil {
		logger.Error().Err(err).Msg("invalid arguments")
		return 2
	}
	if err := errors.Join(cfg.Validate(), cfg.ValidateServe()); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error().Err(err).Str(log.FieldPath, cfg.DataDir).Msg("could not create data dir")
		return 1
	}

	db, err := sqlite.Open(filepath.Join(cfg.DataDir, "runs.db"), sqlite.DefaultConfig())
	if err != nil {
		logger.Error().Err(err).Msg("could not open run ledger")
		return 1
	}
	defer func() { _ = db.Close() }()

	runs := sqlite.NewRunStore(db)
	if err := runs.Init(ctx); err != nil {
		logger.Error().Err(err).Msg("could not initialise run ledger")
		return 1
	}

	deps := analysis.Deps{}
	if hc := openHistoryCache(cfg); hc != nil {
		deps.Cache = hc
		defer func() { _ = hc.Close() }()
	}

	srv := api.New(cfg, runs, nil, deps)

	if cfg.Watch {
		watcher := watch.New(cfg.Repository, 0, func(ctx context.Context) {
			if _, err := srv.Trigger(ctx, cfg); err != nil && !errors.Is(err, api.ErrBusy) {
				logger.Error().
					Err(err).
					Str(log.FieldEvent, "watch.analysis_failed").
					Msg("triggered analysis failed")
			}
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("could not start repository watcher")
			return 1
		}
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error().Err(err).Msg("server terminated")
		return 1
	}
	return 0
}

// SPDX-License-Identifier: MIT

// Package watch triggers re-analyses when the watched git repository gains
// new commits. It observes .git/HEAD and .git/refs, which change on commit,
// checkout and fetch.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ccan-dev/ccan/internal/log"
)

const defaultDebounce = 2 * time.Second

// Watcher observes a repository and invokes the trigger after changes
// settle. Rapid successive ref updates collapse into a single trigger.
type Watcher struct {
	repository string
	debounce   time.Duration
	trigger    func(ctx context.Context)
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger
}

// New creates a watcher for the repository. trigger runs on the watch
// goroutine; long-running work should be handed off by the callee.
func New(repository string, debounce time.Duration, trigger func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		repository: repository,
		debounce:   debounce,
		trigger:    trigger,
		logger:     log.WithComponent("watch"),
	}
}

// Start begins watching until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	gitDir := filepath.Join(w.repository, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		return fmt.Errorf("repository %q has no .git directory: %w", w.repository, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher

	// HEAD changes on checkout, refs/heads on commit.
	paths := []string{gitDir, filepath.Join(gitDir, "refs", "heads")}
	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %q: %w", p, err)
		}
	}

	w.logger.Info().
		Str(log.FieldEvent, "watch.start").
		Str(log.FieldRepository, w.repository).
		Msg("watching repository for new commits")

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str(log.FieldEvent, "watch.stop").Msg("watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().
				Str(log.FieldEvent, "watch.ref_changed").
				Str(log.FieldPath, event.Name).
				Str("op", event.Op.String()).
				Msg("repository changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.logger.Info().
					Str(log.FieldEvent, "watch.trigger").
					Msg("triggering re-analysis")
				w.trigger(ctx)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str(log.FieldEvent, "watch.error").
				Msg("watcher error")
		}
	}
}

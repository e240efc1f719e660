// SPDX-License-Identifier: MIT

// Package config provides configuration management for ccan. Values come
// from CCAN_* environment variables with built-in defaults; command-line
// flags override both.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/ccan-dev/ccan/internal/cochange"
	"github.com/ccan-dev/ccan/internal/gitmine"
)

const dateLayout = "2006-01-02"

// DefaultExcludeRegex matches build artifacts, lockfiles and metadata that
// only add noise to a coupling analysis.
const DefaultExcludeRegex = `.*(json|lock|sh|proto|bat|md|txt|yaml|yml|Dockerfile|mod|sum|.DS_Store|.gitignore)$`

// Config holds all settings for both one-shot analyses and serve mode.
type Config struct {
	// Analysis selection
	Repository string
	Branch     string
	OutputDir  string

	// Thresholds
	ChangesMin int
	FreqMin    int

	// Commit window and binning
	Since   time.Time
	Until   time.Time
	Binning string

	// Path filters
	IncludeRegex string
	ExcludeRegex string

	// Model and prediction
	Algorithm    string
	SkipPredict  bool
	PredictSince time.Time
	PredictUntil time.Time

	// Runtime
	Parallelism int
	DataDir     string
	CacheTTL    time.Duration

	// Serve mode
	Listen       string
	RateLimitRPM int
	Watch        bool

	// Logging
	LogLevel string
}

// FromEnv builds a Config from environment variables and defaults. The zero
// date window spans all of history; the prediction window covers the last 30
// days, matching the original CLI defaults.
func FromEnv(now func() time.Time) Config {
	if now == nil {
		now = time.Now
	}
	today := now().UTC()

	return Config{
		Repository: ParseString("CCAN_REPOSITORY", ""),
		Branch:     ParseString("CCAN_BRANCH", ""),
		OutputDir:  ParseString("CCAN_OUTPUT_DIR", "."),

		ChangesMin: ParseInt("CCAN_CHANGES_MIN", 5),
		FreqMin:    ParseInt("CCAN_FREQ_MIN", 5),

		Since:   ParseDate("CCAN_SINCE", time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)),
		Until:   ParseDate("CCAN_UNTIL", time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)),
		Binning: ParseString("CCAN_BINNING", "none"),

		IncludeRegex: ParseString("CCAN_INCLUDE_REGEX", ".*"),
		ExcludeRegex: ParseString("CCAN_EXCLUDE_REGEX", DefaultExcludeRegex),

		Algorithm:    ParseString("CCAN_ALGORITHM", "naive"),
		SkipPredict:  ParseBool("CCAN_SKIP_PREDICT", false),
		PredictSince: ParseDate("CCAN_PREDICT_SINCE", today.AddDate(0, 0, -30)),
		PredictUntil: ParseDate("CCAN_PREDICT_UNTIL", today.AddDate(0, 0, 1)),

		Parallelism: ParseInt("CCAN_PARALLELISM", 0),
		DataDir:     ParseString("CCAN_DATA_DIR", defaultDataDir()),
		CacheTTL:    ParseDuration("CCAN_CACHE_TTL", 24*time.Hour),

		Listen:       ParseString("CCAN_LISTEN", ":8080"),
		RateLimitRPM: ParseInt("CCAN_RATE_LIMIT_RPM", 10),
		Watch:        ParseBool("CCAN_WATCH", false),

		LogLevel: ParseString("CCAN_LOG_LEVEL", "info"),
	}
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ccan")
	}
	return filepath.Join(os.TempDir(), "ccan")
}

// SinceTime returns the start of the commit window (00:00:00 of Since).
func (c Config) SinceTime() time.Time { return dayStart(c.Since) }

// UntilTime returns the end of the commit window (23:59:59 of Until).
func (c Config) UntilTime() time.Time { return dayEnd(c.Until) }

// PredictSinceTime returns the start of the prediction window.
func (c Config) PredictSinceTime() time.Time { return dayStart(c.PredictSince) }

// PredictUntilTime returns the end of the prediction window.
func (c Config) PredictUntilTime() time.Time { return dayEnd(c.PredictUntil) }

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// Validate checks the configuration for an analysis run. Serve-only fields
// are checked by ValidateServe.
func (c Config) Validate() error {
	var errs []error

	if c.Repository == "" {
		errs = append(errs, errors.New("repository is required"))
	} else if _, err := os.Stat(c.Repository); err != nil {
		errs = append(errs, fmt.Errorf("repository %q: %w", c.Repository, err))
	}
	if c.Branch == "" {
		errs = append(errs, errors.New("branch is required"))
	}
	if c.ChangesMin < 0 {
		errs = append(errs, fmt.Errorf("changes-min must be >= 0 (got %d)", c.ChangesMin))
	}
	if c.FreqMin < 0 {
		errs = append(errs, fmt.Errorf("freq-min must be >= 0 (got %d)", c.FreqMin))
	}
	if c.Until.Before(c.Since) {
		errs = append(errs, fmt.Errorf("until (%s) precedes since (%s)",
			c.Until.Format(dateLayout), c.Since.Format(dateLayout)))
	}
	if c.PredictUntil.Before(c.PredictSince) {
		errs = append(errs, fmt.Errorf("predict-until (%s) precedes predict-since (%s)",
			c.PredictUntil.Format(dateLayout), c.PredictSince.Format(dateLayout)))
	}
	if _, err := gitmine.ParseGrouping(c.Binning); err != nil {
		errs = append(errs, err)
	}
	if _, err := cochange.ParseModelType(c.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if _, err := regexp.Compile("(?i)" + c.IncludeRegex); err != nil {
		errs = append(errs, fmt.Errorf("include regex: %w", err))
	}
	if _, err := regexp.Compile("(?i)" + c.ExcludeRegex); err != nil {
		errs = append(errs, fmt.Errorf("exclude regex: %w", err))
	}

	return errors.Join(errs...)
}

// ValidateServe checks the additional serve-mode settings.
func (c Config) ValidateServe() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	} else if _, port, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen address %q: %w", c.Listen, err))
	} else if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("listen port %q must be 0-65535", port))
	}
	if c.RateLimitRPM <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be > 0 (got %d)", c.RateLimitRPM))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be >= 0 (got %s)", c.CacheTTL))
	}

	return errors.Join(errs...)
}

// MineOptions converts the config into mining options.
func (c Config) MineOptions() (gitmine.Options, error) {
	binning, err := gitmine.ParseGrouping(c.Binning)
	if err != nil {
		return gitmine.Options{}, err
	}
	filter, err := gitmine.NewPathFilter([]string{c.ExcludeRegex}, []string{c.IncludeRegex})
	if err != nil {
		return gitmine.Options{}, err
	}
	return gitmine.Options{
		Repository: c.Repository,
		Branch:     c.Branch,
		Since:      c.SinceTime(),
		Until:      c.UntilTime(),
		Binning:    binning,
		Filter:     filter,
	}, nil
}

// CoChangeOptions converts the config into coupling options.
func (c Config) CoChangeOptions() (cochange.Options, error) {
	model, err := cochange.ParseModelType(c.Algorithm)
	if err != nil {
		return cochange.Options{}, err
	}
	return cochange.Options{
		ChangesMin:  c.ChangesMin,
		FreqMin:     c.FreqMin,
		Model:       model,
		Parallelism: c.Parallelism,
	}, nil
}

// PredictOptions converts the config into prediction options.
func (c Config) PredictOptions() (cochange.PredictOptions, error) {
	model, err := cochange.ParseModelType(c.Algorithm)
	if err != nil {
		return cochange.PredictOptions{}, err
	}
	return cochange.PredictOptions{
		Skip:  c.SkipPredict,
		Since: c.PredictSinceTime(),
		Until: c.PredictUntilTime(),
		Model: model,
	}, nil
}

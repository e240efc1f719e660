// SPDX-License-Identifier: MIT

package gitmine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Commit is the subset of commit metadata the analysis needs.
type Commit struct {
	Hash   string    `json:"hash"`
	Author string    `json:"author"`
	When   time.Time `json:"when"`
}

// Delta holds the filtered file paths touched between two consecutive
// sampled commits, keyed by the child commit's date bin.
type Delta struct {
	Bin      time.Time `json:"bin"`
	Parent   Commit    `json:"parent"`
	Child    Commit    `json:"child"`
	OldFiles []string  `json:"old_files"`
	NewFiles []string  `json:"new_files"`
}

// History is the mined change history of a repository: one delta per date
// bin, ordered by bin ascending.
type History struct {
	Deltas []Delta `json:"deltas"`
}

// Files returns all new-file paths across deltas in delta order.
// Deduplication is the caller's concern.
func (h *History) Files() []string {
	var out []string
	for _, d := range h.Deltas {
		out = append(out, d.NewFiles...)
	}
	return out
}

// Options selects which part of a repository's history is mined.
type Options struct {
	Repository string
	Branch     string
	Since      time.Time
	Until      time.Time
	Binning    Grouping
	Filter     *PathFilter
}

// Key returns a stable cache key covering every option that influences the
// mined history.
func (o Options) Key() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s|%s|%s",
		o.Repository, o.Branch,
		o.Since.UTC().Unix(), o.Until.UTC().Unix(),
		o.Binning,
		o.Filter.IncludePattern(), o.Filter.ExcludePattern())
	return hex.EncodeToString(h.Sum(nil))
}

// SPDX-License-Identifier: MIT

// Package gitmine extracts change histories from git repositories. It walks
// the commits of a branch within a date window, keeps one commit per date
// bin, and records which files changed between consecutive sampled commits.
package gitmine

import (
	"context"
	"fmt"
	"sort"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ccan-dev/ccan/internal/log"
)

// Mine opens the repository and extracts its change history according to opts.
// An unknown branch is an error; a window containing fewer than two sampled
// commits yields an empty history.
func Mine(ctx context.Context, opts Options) (*History, error) {
	logger := log.WithComponentFromContext(ctx, "gitmine")

	repo, err := git.PlainOpen(opts.Repository)
	if err != nil {
		return nil, fmt.Errorf("open repository %q: %w", opts.Repository, err)
	}

	commits, err := listCommits(ctx, repo, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str(log.FieldEvent, "mine.commits").
		Int(log.FieldCommits, len(commits)).
		Msg("commits in window")

	sampled := sample(commits, opts.Binning)
	logger.Debug().
		Str(log.FieldEvent, "mine.sampled").
		Str(log.FieldBinning, opts.Binning.String()).
		Int(log.FieldCommits, len(sampled)).
		Msg("commits after binning")

	return diffs(ctx, sampled, opts.Binning, opts.Filter)
}

// listCommits walks the branch and returns all commits with committer time
// strictly inside (since, until), ordered oldest first.
func listCommits(ctx context.Context, repo *git.Repository, opts Options) ([]*object.Commit, error) {
	rev, err := repo.ResolveRevision(plumbing.Revision(opts.Branch))
	if err != nil {
		return nil, fmt.Errorf("cannot find branch %q: %w", opts.Branch, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: *rev})
	if err != nil {
		return nil, fmt.Errorf("walk commits from %s: %w", rev, err)
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		when := c.Committer.When
		if when.After(opts.Since) && when.Before(opts.Until) {
			commits = append(commits, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk commits: %w", err)
	}

	sort.Slice(commits, func(i, j int) bool {
		wi, wj := commits[i].Committer.When, commits[j].Committer.When
		if wi.Equal(wj) {
			return commits[i].Hash.String() < commits[j].Hash.String()
		}
		return wi.Before(wj)
	})
	return commits, nil
}

// sample keeps the first commit of each date bin. Input must be ordered
// oldest first; the result preserves that order.
func sample(commits []*object.Commit, binning Grouping) []*object.Commit {
	times := make([]time.Time, len(commits))
	for i, c := range commits {
		times[i] = c.Committer.When
	}
	keep := sampleIndexes(times, binning)
	out := make([]*object.Commit, len(keep))
	for i, idx := range keep {
		out[i] = commits[idx]
	}
	return out
}

// sampleIndexes returns the indexes of the commits to keep: the first entry
// of every distinct bin. times must be sorted ascending.
func sampleIndexes(times []time.Time, binning Grouping) []int {
	var keep []int
	var lastBin time.Time
	for i, t := range times {
		bin := binning.Bin(t)
		if len(keep) > 0 && bin.Equal(lastBin) {
			continue
		}
		keep = append(keep, i)
		lastBin = bin
	}
	return keep
}

// diffs computes tree diffs between consecutive sampled commits, applies the
// path filter, and groups the result by the child commit's date bin.
func diffs(ctx context.Context, commits []*object.Commit, binning Grouping, filter *PathFilter) (*History, error) {
	logger := log.WithComponentFromContext(ctx, "gitmine")

	// Keyed by bin: when two pairs fall into the same bin the later one
	// wins, matching the grouped-map semantics of the analysis model.
	byBin := make(map[time.Time]Delta)

	for i := 0; i+1 < len(commits); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parent, child := commits[i], commits[i+1]

		changes, err := treeDiff(ctx, parent, child)
		if err != nil {
			logger.Debug().
				Str(log.FieldEvent, "mine.diff_skipped").
				Str("parent", parent.Hash.String()).
				Str("child", child.Hash.String()).
				Err(err).
				Msg("cannot calculate diff")
			continue
		}

		delta := Delta{
			Bin:    binning.Bin(child.Committer.When),
			Parent: commitMeta(parent),
			Child:  commitMeta(child),
		}
		for _, ch := range changes {
			oldName, newName := ch.From.Name, ch.To.Name
			if oldName == "" {
				oldName = newName
			}
			if newName == "" {
				newName = oldName
			}
			if !filter.Matches(oldName) {
				continue
			}
			delta.OldFiles = append(delta.OldFiles, oldName)
			delta.NewFiles = append(delta.NewFiles, newName)
		}
		byBin[delta.Bin] = delta
	}

	bins := make([]time.Time, 0, len(byBin))
	for bin := range byBin {
		bins = append(bins, bin)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Before(bins[j]) })

	h := &History{Deltas: make([]Delta, 0, len(bins))}
	for _, bin := range bins {
		h.Deltas = append(h.Deltas, byBin[bin])
	}
	return h, nil
}

func treeDiff(ctx context.Context, parent, child *object.Commit) (object.Changes, error) {
	pTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("parent tree: %w", err)
	}
	cTree, err := child.Tree()
	if err != nil {
		return nil, fmt.Errorf("child tree: %w", err)
	}
	return object.DiffTreeWithOptions(ctx, pTree, cTree, object.DefaultDiffTreeOptions)
}

func commitMeta(c *object.Commit) Commit {
	author := c.Author.Name
	if author == "" {
		author = "<no-author-name>"
	}
	return Commit{
		Hash:   c.Hash.String(),
		Author: author,
		When:   c.Committer.When.UTC(),
	}
}

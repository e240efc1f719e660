// SPDX-License-Identifier: MIT

package gitmine

import (
	"fmt"
	"regexp"
	"strings"
)

// PathFilter decides which file paths take part in the analysis. A path is
// kept iff it matches the include pattern and not the exclude pattern; both
// are case-insensitive.
type PathFilter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp

	includeSrc string
	excludeSrc string
}

// NewPathFilter compiles a filter from exclude and include pattern lists.
// Multiple patterns are joined as alternatives. An empty include list matches
// everything, an empty exclude list matches nothing.
func NewPathFilter(excludes, includes []string) (*PathFilter, error) {
	exclude, excludeSrc, err := compilePatterns(excludes, `a^`)
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	include, includeSrc, err := compilePatterns(includes, `.*`)
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	return &PathFilter{
		include:    include,
		exclude:    exclude,
		includeSrc: includeSrc,
		excludeSrc: excludeSrc,
	}, nil
}

func compilePatterns(patterns []string, empty string) (*regexp.Regexp, string, error) {
	var src string
	switch len(patterns) {
	case 0:
		src = empty
	case 1:
		src = patterns[0]
		if src == "" {
			src = empty
		}
	default:
		src = "(" + strings.Join(patterns, "|") + ")"
	}
	re, err := regexp.Compile("(?i)" + src)
	if err != nil {
		return nil, "", err
	}
	return re, src, nil
}

// AcceptAll returns a filter that keeps every path.
func AcceptAll() *PathFilter {
	f, _ := NewPathFilter(nil, nil)
	return f
}

// IncludeOnly returns a filter that keeps only paths matching the given patterns.
func IncludeOnly(patterns ...string) (*PathFilter, error) {
	return NewPathFilter(nil, patterns)
}

// Matches reports whether path passes the filter.
func (f *PathFilter) Matches(path string) bool {
	return f.include.MatchString(path) && !f.exclude.MatchString(path)
}

// IncludePattern returns the compiled include pattern source.
func (f *PathFilter) IncludePattern() string { return f.includeSrc }

// ExcludePattern returns the compiled exclude pattern source.
func (f *PathFilter) ExcludePattern() string { return f.excludeSrc }

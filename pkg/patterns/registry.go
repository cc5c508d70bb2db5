// Package patterns classifies filenames against a set of sensitivity
// detection rules loaded from the result store.
//
// The registry is built once per scan run and is immutable afterwards, so
// it can be shared across scanner workers without locking.
package patterns

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/models"
)

// Match is one detection produced by Classify.
type Match struct {
	Category    string
	Description string
}

// Source provides the pattern rows the registry compiles. The result
// store implements it.
type Source interface {
	ListPatterns(ctx context.Context, enabledOnly bool) ([]models.Pattern, error)
}

type compiledPattern struct {
	re          *regexp.Regexp
	category    string
	description string
}

// Registry holds the compiled pattern set for one scan run.
type Registry struct {
	patterns []compiledPattern

	// combined is an alternation of every pattern, used as a cheap
	// pre-filter before the per-pattern pass. Nil when it failed to
	// compile; Classify then falls back to the per-pattern pass alone.
	combined *regexp.Regexp
}

// New compiles the given pattern rows into a registry. Rows with invalid
// regexes are logged and skipped; compilation never fails the caller.
func New(rows []models.Pattern) *Registry {
	r := &Registry{}

	var alternates []string
	for _, row := range rows {
		re, err := regexp.Compile(caseInsensitive(row.Pattern))
		if err != nil {
			logger.Warn("skipping invalid detection pattern",
				"pattern", row.Pattern, "category", row.Category, "error", err)
			continue
		}
		r.patterns = append(r.patterns, compiledPattern{
			re:          re,
			category:    row.Category,
			description: row.Description,
		})
		alternates = append(alternates, "(?:"+row.Pattern+")")
	}

	if len(alternates) > 1 {
		combined, err := regexp.Compile(caseInsensitive(strings.Join(alternates, "|")))
		if err == nil {
			r.combined = combined
		}
	}

	return r
}

// Load builds a registry from the store's enabled patterns. A store
// failure or an empty table falls back to the built-in defaults; loading
// never fails the scan.
func Load(ctx context.Context, src Source) *Registry {
	rows, err := src.ListPatterns(ctx, true)
	if err != nil {
		logger.Warn("failed to load detection patterns, using defaults", "error", err)
		return New(Defaults())
	}
	if len(rows) == 0 {
		logger.Warn("no enabled detection patterns in store, using defaults")
		return New(Defaults())
	}

	r := New(rows)
	logger.Debug("loaded detection patterns", "count", r.Len())
	return r
}

// Classify returns one Match per distinct category whose pattern matches
// the filename. Matching is case-insensitive and may match anywhere in
// the string. Returns nil when nothing matches.
func (r *Registry) Classify(name string) []Match {
	if len(r.patterns) == 0 || name == "" {
		return nil
	}

	if r.combined != nil && !r.combined.MatchString(name) {
		return nil
	}

	var matches []Match
	var seen map[string]struct{}
	for _, p := range r.patterns {
		if _, dup := seen[p.category]; dup {
			continue
		}
		if p.re.MatchString(name) {
			if seen == nil {
				seen = make(map[string]struct{}, 4)
			}
			seen[p.category] = struct{}{}
			matches = append(matches, Match{Category: p.category, Description: p.description})
		}
	}
	return matches
}

// Len returns the number of compiled patterns.
func (r *Registry) Len() int {
	return len(r.patterns)
}

// Categories returns the distinct categories in the registry, in pattern
// order.
func (r *Registry) Categories() []string {
	var out []string
	seen := make(map[string]struct{}, len(r.patterns))
	for _, p := range r.patterns {
		if _, dup := seen[p.category]; dup {
			continue
		}
		seen[p.category] = struct{}{}
		out = append(out, p.category)
	}
	return out
}

// caseInsensitive wraps a pattern so it matches regardless of case even
// when the row itself does not carry the flag.
func caseInsensitive(pattern string) string {
	return fmt.Sprintf("(?i)(?:%s)", pattern)
}

// Package tasktype classifies free-text work descriptions into task types
// (configuration, documentation, UI component, ...) using keyword heuristics
// supplied by configuration.
package tasktype

import (
	"sort"
	"strings"
	"unicode"

	"donecheck/internal/config"
)

// Match is a task type that applies to a description.
type Match struct {
	Name              string
	Explanation       string
	CheckInstead      []string
	DirectoryPrefixes []string
	ExpectsFile       bool
	// Keywords lists the description words that triggered the match.
	Keywords []string
}

// Matcher matches descriptions against configured task types.
type Matcher struct {
	types []config.TaskTypeConfig
}

// NewMatcher creates a matcher over the given task types; order breaks ties.
func NewMatcher(types []config.TaskTypeConfig) *Matcher {
	return &Matcher{types: types}
}

// Match returns every task type with at least one keyword hit,
// most hits first and configuration order among equals.
func (m *Matcher) Match(description string) []Match {
	words := wordSet(description)

	type scored struct {
		match Match
		order int
	}
	var hits []scored
	for i, tt := range m.types {
		var matched []string
		for _, kw := range tt.Keywords {
			kw = strings.ToLower(kw)
			if words[kw] {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		hits = append(hits, scored{
			order: i,
			match: Match{
				Name:              tt.Name,
				Explanation:       tt.Explanation,
				CheckInstead:      tt.CheckInstead,
				DirectoryPrefixes: tt.DirectoryPrefixes,
				ExpectsFile:       tt.ExpectsFile,
				Keywords:          matched,
			},
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if len(hits[i].match.Keywords) != len(hits[j].match.Keywords) {
			return len(hits[i].match.Keywords) > len(hits[j].match.Keywords)
		}
		return hits[i].order < hits[j].order
	})

	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.match
	}
	return out
}

// Best returns the strongest match, if any.
func (m *Matcher) Best(description string) (Match, bool) {
	matches := m.Match(description)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Prefixes returns the directory prefixes of all matching task types, deduplicated, in match order.
func (m *Matcher) Prefixes(description string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, match := range m.Match(description) {
		for _, p := range match.DirectoryPrefixes {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// wordSet lowercases and splits on anything that is not a letter or digit.
// Plural forms are registered under their singular as well.
func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words)*2)
	for _, w := range words {
		set[w] = true
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			set[strings.TrimSuffix(w, "s")] = true
		}
	}
	return set
}

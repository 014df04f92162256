// Package scoring turns collected evidence into a 0..100 confidence using
// fixed, named weights per evidence category.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/evidence"
)

// maxListed caps how many paths a reason names.
const maxListed = 3

// Breakdown is the per-category contribution to a confidence.
type Breakdown struct {
	Files    int `json:"files"`
	Tests    int `json:"tests"`
	Usage    int `json:"usage"`
	Patterns int `json:"patterns"`
	Archival int `json:"archival,omitempty"`
	Age      int `json:"age,omitempty"`
	Marker   int `json:"marker,omitempty"`
	// PatternsDiscounted is set when file evidence reduced the pattern contribution.
	PatternsDiscounted bool `json:"patternsDiscounted,omitempty"`
}

// Total is the clamped sum of all contributions.
func (b Breakdown) Total() int {
	return Clamp(b.Files + b.Tests + b.Usage + b.Patterns + b.Archival + b.Age + b.Marker)
}

// Scorer computes confidences. It holds no mutable state.
type Scorer struct {
	feature config.FeatureWeights
	todo    config.TodoWeights
}

// New creates a scorer from the scoring config. Validate the config first.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{feature: cfg.Feature, todo: cfg.Todo}
}

// Score returns the confidence and the reasons behind it, in the fixed
// category order files, tests, usage, patterns, archival, age, marker.
func (s *Scorer) Score(ev evidence.Evidence, kind candidate.Kind) (int, []string) {
	b := s.Breakdown(ev, kind)
	return b.Total(), Reasons(ev, b)
}

// Breakdown computes each category's contribution.
func (s *Scorer) Breakdown(ev evidence.Evidence, kind candidate.Kind) Breakdown {
	if kind == candidate.KindTodo {
		return s.todoBreakdown(ev)
	}
	return s.featureBreakdown(ev)
}

func (s *Scorer) featureBreakdown(ev evidence.Evidence) Breakdown {
	w := s.feature
	var b Breakdown
	hasFiles := len(ev.FilesFound) > 0
	if hasFiles {
		b.Files = w.Files
	}
	if len(ev.TestsFound) > 0 {
		b.Tests = w.Tests
	}
	if n := len(ev.UsageDetected); n > 0 && w.UsageSaturation > 0 {
		b.Usage = w.Usage * min(n, w.UsageSaturation) / w.UsageSaturation
	}
	b.Patterns, b.PatternsDiscounted = patternPoints(ev, hasFiles, w.Patterns, w.PatternPointsPerMatch, w.PatternDiscountPercent)
	return b
}

func (s *Scorer) todoBreakdown(ev evidence.Evidence) Breakdown {
	w := s.todo
	var b Breakdown
	hasFiles := len(ev.FilesFound) > 0
	if hasFiles {
		b.Files = w.Files
	}
	if len(ev.TestsFound) > 0 {
		b.Tests = w.Tests
	}
	if len(ev.UsageDetected) > 0 {
		b.Usage = w.Usage
	}
	b.Patterns, b.PatternsDiscounted = patternPoints(ev, hasFiles, w.Patterns, w.PatternPointsPerMatch, w.PatternDiscountPercent)
	if ev.Archival.Archived {
		b.Archival = w.Archival
	}
	if ev.Age.Known {
		switch {
		case ev.Age.Days >= w.StaleAfterDays:
			b.Age = w.Stale
		case ev.Age.Days >= w.AgingAfterDays:
			b.Age = w.Aging
		}
	}
	if ev.ResolvedMarker {
		b.Marker = w.ResolvedMarker
	}
	return b
}

// patternPoints scales with distinct keywords up to capPoints, discounted once
// a dedicated file has been found.
func patternPoints(ev evidence.Evidence, hasFiles bool, capPoints, perMatch, discountPercent int) (int, bool) {
	distinct := ev.DistinctKeywords()
	if distinct == 0 {
		return 0, false
	}
	points := min(capPoints, perMatch*distinct)
	if hasFiles {
		return points * (100 - discountPercent) / 100, discountPercent > 0
	}
	return points, false
}

// Clamp limits a confidence to [0,100].
func Clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Reasons explains each positive contribution of b.
func Reasons(ev evidence.Evidence, b Breakdown) []string {
	var reasons []string
	if b.Files > 0 {
		reasons = append(reasons, fmt.Sprintf("%s: %s (+%d)",
			plural(len(ev.FilesFound), "implementation file found", "implementation files found"),
			listPaths(ev.FilesFound), b.Files))
	}
	if b.Tests > 0 {
		reasons = append(reasons, fmt.Sprintf("%s: %s (+%d)",
			plural(len(ev.TestsFound), "test file found", "test files found"),
			listPaths(ev.TestsFound), b.Tests))
	}
	if b.Usage > 0 {
		sites := make([]string, 0, len(ev.UsageDetected))
		for _, u := range ev.UsageDetected {
			sites = append(sites, fmt.Sprintf("%s:%d", u.File, u.Line))
		}
		reasons = append(reasons, fmt.Sprintf("Referenced from %s: %s (+%d)",
			plural(len(ev.UsageDetected), "place", "places"), listPaths(sites), b.Usage))
	}
	if b.Patterns > 0 {
		note := ""
		if b.PatternsDiscounted {
			note = ", discounted because a file was found"
		}
		reasons = append(reasons, fmt.Sprintf("Keyword matches for %s in %s (+%d%s)",
			strings.Join(patternKeywords(ev), ", "),
			plural(patternFiles(ev), "file", "files"), b.Patterns, note))
	}
	if b.Archival > 0 {
		reasons = append(reasons, fmt.Sprintf("Archived code: %s (+%d)", ev.Archival.Reason, b.Archival))
	}
	if b.Age > 0 {
		reasons = append(reasons, fmt.Sprintf("Untouched for %d days per %s (+%d)", ev.Age.Days, ev.Age.Source, b.Age))
	}
	if b.Marker > 0 {
		reasons = append(reasons, fmt.Sprintf("Comment says the work is done (+%d)", b.Marker))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "No evidence found")
	}
	return reasons
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func listPaths(items []string) string {
	if len(items) <= maxListed {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:maxListed], ", ") + fmt.Sprintf(" and %d more", len(items)-maxListed)
}

func patternKeywords(ev evidence.Evidence) []string {
	seen := make(map[string]bool)
	var kws []string
	for _, p := range ev.CodePatterns {
		if !seen[p.Keyword] {
			seen[p.Keyword] = true
			kws = append(kws, p.Keyword)
		}
	}
	sort.Strings(kws)
	return kws
}

func patternFiles(ev evidence.Evidence) int {
	seen := make(map[string]bool)
	for _, p := range ev.CodePatterns {
		seen[p.File] = true
	}
	return len(seen)
}

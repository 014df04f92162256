// Package aggregate rolls scored results up into per-group and global
// statistics. It is a pure function of its input.
package aggregate

import (
	"path"
	"sort"

	"donecheck/internal/classify"
	"donecheck/internal/config"
	"donecheck/internal/engine"
)

// KeyFunc picks the group a result belongs to.
type KeyFunc func(engine.ScoredResult) string

// Options tunes the derived metrics.
type Options struct {
	// TopN caps the uncertain and closable lists; 0 disables them.
	TopN int
	// CleanupFloor is the confidence at which a TODO is safe to close.
	CleanupFloor int
	// ReviewFloor is the lowest confidence listed among closable TODOs.
	ReviewFloor int
	// LowConfidenceCeiling and HighConfidenceFloor split implemented features.
	LowConfidenceCeiling int
	HighConfidenceFloor  int
}

// OptionsFromConfig derives options from the classifier and aggregate settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopN:                 cfg.Aggregate.TopN,
		CleanupFloor:         cfg.Classifier.Bands.VeryHigh,
		ReviewFloor:          cfg.Classifier.Bands.High,
		LowConfidenceCeiling: cfg.Classifier.LowConfidenceCeiling,
		HighConfidenceFloor:  cfg.Classifier.HighConfidenceFloor,
	}
}

// Group is the rollup of one key.
type Group struct {
	Key         string `json:"key"`
	Total       int    `json:"total"`
	Implemented int    `json:"implemented"`
	Partial     int    `json:"partial"`
	Missing     int    `json:"missing"`
	Unknown     int    `json:"unknown"`
	// Closable counts TODOs at or above the cleanup floor.
	Closable        int                     `json:"closable"`
	ByStatus        map[classify.Status]int `json:"byStatus"`
	ProgressPercent int                     `json:"progressPercent"`
}

// Summary is the rollup over all results.
type Summary struct {
	Total    int                     `json:"total"`
	ByStatus map[classify.Status]int `json:"byStatus"`

	Implemented int `json:"implemented"`
	Partial     int `json:"partial"`
	Missing     int `json:"missing"`
	Unknown     int `json:"unknown"`
	// Implemented features split by confidence.
	LowConfidence      int `json:"lowConfidence"`
	ModerateConfidence int `json:"moderateConfidence"`
	HighConfidence     int `json:"highConfidence"`
	ProgressPercent    int `json:"progressPercent"`

	// TODO cleanup potential.
	CleanupCount   int `json:"cleanupCount"`
	CleanupPercent int `json:"cleanupPercent"`
}

// Report is the aggregate over one batch.
type Report struct {
	Groups  []Group `json:"groups"`
	Summary Summary `json:"summary"`
	// TopUncertain lists features most in need of attention.
	TopUncertain []engine.ScoredResult `json:"topUncertain,omitempty"`
	// TopClosable lists the TODOs most likely done.
	TopClosable []engine.ScoredResult `json:"topClosable,omitempty"`
}

// Aggregate groups results by keyFn and computes the derived metrics.
func Aggregate(results []engine.ScoredResult, keyFn KeyFunc, opts Options) *Report {
	if keyFn == nil {
		keyFn = ByDocument
	}

	groups := make(map[string]*Group)
	summary := Summary{ByStatus: make(map[classify.Status]int)}
	for _, r := range results {
		key := keyFn(r)
		g, ok := groups[key]
		if !ok {
			g = &Group{Key: key, ByStatus: make(map[classify.Status]int)}
			groups[key] = g
		}
		g.add(r, opts)
		summary.add(r, opts)
	}

	report := &Report{Groups: make([]Group, 0, len(groups))}
	for _, g := range groups {
		g.ProgressPercent = Percent(g.Implemented+g.Closable, g.Total)
		report.Groups = append(report.Groups, *g)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].Key < report.Groups[j].Key
	})

	summary.ProgressPercent = Percent(summary.Implemented+summary.CleanupCount, summary.Total)
	summary.CleanupPercent = Percent(summary.CleanupCount, summary.Total)
	report.Summary = summary

	report.TopUncertain = topUncertain(results, opts)
	report.TopClosable = topClosable(results, opts)
	return report
}

func (g *Group) add(r engine.ScoredResult, opts Options) {
	g.Total++
	g.ByStatus[r.Status]++
	switch r.Status {
	case classify.StatusImplemented:
		g.Implemented++
	case classify.StatusPartial:
		g.Partial++
	case classify.StatusMissing:
		g.Missing++
	case classify.StatusUnknown:
		g.Unknown++
	}
	if isTodo(r) && r.Status != classify.StatusUnknown && r.Confidence >= opts.CleanupFloor {
		g.Closable++
	}
}

func (s *Summary) add(r engine.ScoredResult, opts Options) {
	s.Total++
	s.ByStatus[r.Status]++
	switch r.Status {
	case classify.StatusImplemented:
		s.Implemented++
		switch {
		case r.Confidence >= opts.HighConfidenceFloor:
			s.HighConfidence++
		case r.Confidence >= opts.LowConfidenceCeiling:
			s.ModerateConfidence++
		default:
			s.LowConfidence++
		}
	case classify.StatusPartial:
		s.Partial++
	case classify.StatusMissing:
		s.Missing++
	case classify.StatusUnknown:
		s.Unknown++
	}
	if isTodo(r) && r.Status != classify.StatusUnknown && r.Confidence >= opts.CleanupFloor {
		s.CleanupCount++
	}
}

// Percent is round-half-up of 100*part/total, or 0 for an empty total.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// uncertainRank orders statuses for TopUncertain; -1 excludes a result.
func uncertainRank(r engine.ScoredResult, opts Options) int {
	switch r.Status {
	case classify.StatusMissing:
		return 0
	case classify.StatusPartial:
		return 1
	case classify.StatusImplemented:
		if r.Confidence < opts.LowConfidenceCeiling {
			return 2
		}
	case classify.StatusUnknown:
		if !isTodo(r) {
			return 3
		}
	}
	return -1
}

func topUncertain(results []engine.ScoredResult, opts Options) []engine.ScoredResult {
	if opts.TopN <= 0 {
		return nil
	}
	type ranked struct {
		rank int
		r    engine.ScoredResult
	}
	var list []ranked
	for _, r := range results {
		if isTodo(r) {
			continue
		}
		if rank := uncertainRank(r, opts); rank >= 0 {
			list = append(list, ranked{rank, r})
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].rank != list[j].rank {
			return list[i].rank < list[j].rank
		}
		return list[i].r.Confidence < list[j].r.Confidence
	})

	out := make([]engine.ScoredResult, 0, min(len(list), opts.TopN))
	for _, l := range list[:min(len(list), opts.TopN)] {
		out = append(out, l.r)
	}
	return out
}

func topClosable(results []engine.ScoredResult, opts Options) []engine.ScoredResult {
	if opts.TopN <= 0 {
		return nil
	}
	var list []engine.ScoredResult
	for _, r := range results {
		if isTodo(r) && r.Status != classify.StatusUnknown && r.Confidence >= opts.ReviewFloor {
			list = append(list, r)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Confidence > list[j].Confidence
	})
	if len(list) > opts.TopN {
		list = list[:opts.TopN]
	}
	return list
}

func isTodo(r engine.ScoredResult) bool {
	return r.Candidate.Todo != nil
}

// ByDocument groups by origin: the planning document of a feature or the
// source file of a TODO.
func ByDocument(r engine.ScoredResult) string {
	file, _ := r.Candidate.Location()
	return file
}

// ByFile groups features by their first implementation file ("(none)" when
// nothing was found) and TODOs by their source file.
func ByFile(r engine.ScoredResult) string {
	if isTodo(r) {
		return r.Candidate.Todo.File
	}
	if len(r.Evidence.FilesFound) == 0 {
		return "(none)"
	}
	return r.Evidence.FilesFound[0]
}

// ByDirectory groups by the directory of the origin path.
func ByDirectory(r engine.ScoredResult) string {
	file, _ := r.Candidate.Location()
	return path.Dir(file)
}

// ByBand groups by confidence band.
func ByBand(r engine.ScoredResult) string {
	return string(r.Band)
}

// ByStatus groups by status.
func ByStatus(r engine.ScoredResult) string {
	return string(r.Status)
}

// KeyFuncByName resolves a --group-by flag value.
func KeyFuncByName(name string) (KeyFunc, bool) {
	switch name {
	case "", "document", "doc":
		return ByDocument, true
	case "file":
		return ByFile, true
	case "dir", "directory":
		return ByDirectory, true
	case "band":
		return ByBand, true
	case "status":
		return ByStatus, true
	}
	return nil, false
}

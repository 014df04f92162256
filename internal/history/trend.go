package history

import (
	"sort"

	"donecheck/internal/classify"
	"donecheck/internal/engine"
	"donecheck/internal/report"
)

// statusRank orders statuses from outstanding to done; unknown is unranked.
func statusRank(s classify.Status) (int, bool) {
	switch s {
	case classify.StatusMissing, classify.StatusActive:
		return 0, true
	case classify.StatusPartial, classify.StatusLow:
		return 1, true
	case classify.StatusImplemented, classify.StatusMedium:
		return 2, true
	case classify.StatusHigh:
		return 3, true
	case classify.StatusVeryHigh:
		return 4, true
	}
	return 0, false
}

// Compare describes how cur differs from prev. A nil prev is a first run.
func Compare(prev, cur *report.Document) *report.Trend {
	if prev == nil {
		return &report.Trend{Direction: report.TrendFirstRun, Added: len(cur.Results)}
	}

	t := &report.Trend{
		PreviousRunID:   prev.RunID,
		PreviousAt:      prev.GeneratedAt,
		PreviousPercent: progress(prev),
	}
	t.ProgressDelta = progress(cur) - t.PreviousPercent

	byID := make(map[string]int, len(prev.Results))
	byPrint := make(map[string][]int, len(prev.Results))
	for i, r := range prev.Results {
		byID[r.Candidate.ID()] = i
		fp := r.Candidate.Fingerprint()
		byPrint[fp] = append(byPrint[fp], i)
	}

	// Matching runs in passes so an unchanged item is never taken by a
	// moved duplicate: same place and content, then same content, then same place.
	used := make(map[int]bool, len(prev.Results))
	matched := make([]int, len(cur.Results))
	for j := range matched {
		matched[j] = -1
	}
	passes := []func(engine.ScoredResult) int{
		func(r engine.ScoredResult) int {
			if i, ok := byID[r.Candidate.ID()]; ok && prev.Results[i].Candidate.Fingerprint() == r.Candidate.Fingerprint() {
				return i
			}
			return -1
		},
		func(r engine.ScoredResult) int {
			for _, i := range byPrint[r.Candidate.Fingerprint()] {
				if !used[i] {
					return i
				}
			}
			return -1
		},
		func(r engine.ScoredResult) int {
			if i, ok := byID[r.Candidate.ID()]; ok {
				return i
			}
			return -1
		},
	}
	for _, pass := range passes {
		for j, r := range cur.Results {
			if matched[j] >= 0 {
				continue
			}
			if i := pass(r); i >= 0 && !used[i] {
				matched[j] = i
				used[i] = true
			}
		}
	}

	for j, r := range cur.Results {
		i := matched[j]
		if i < 0 {
			t.Added++
			continue
		}
		before, okBefore := statusRank(prev.Results[i].Status)
		after, okAfter := statusRank(r.Status)
		if !okBefore || !okAfter {
			continue
		}
		switch {
		case after > before:
			t.Improved = append(t.Improved, r.Candidate.ID())
		case after < before:
			t.Regressed = append(t.Regressed, r.Candidate.ID())
		}
	}
	t.Removed = len(prev.Results) - len(used)
	sort.Strings(t.Improved)
	sort.Strings(t.Regressed)

	switch {
	case t.ProgressDelta > 0:
		t.Direction = report.TrendImproving
	case t.ProgressDelta < 0:
		t.Direction = report.TrendDeclining
	case len(t.Improved) > len(t.Regressed):
		t.Direction = report.TrendImproving
	case len(t.Improved) < len(t.Regressed):
		t.Direction = report.TrendDeclining
	default:
		t.Direction = report.TrendSame
	}
	return t
}

func progress(doc *report.Document) int {
	if doc.Aggregate == nil {
		return 0
	}
	return doc.Aggregate.Summary.ProgressPercent
}

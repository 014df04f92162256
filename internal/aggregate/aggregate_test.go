package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donecheck/internal/candidate"
	"donecheck/internal/classify"
	"donecheck/internal/config"
	"donecheck/internal/engine"
	"donecheck/internal/evidence"
)

func opts() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

func featureResult(doc string, line, confidence int, status classify.Status) engine.ScoredResult {
	r := engine.ScoredResult{
		Candidate:  candidate.NewFeature(candidate.FeatureInfo{Description: "f", Document: doc, Line: line}),
		Confidence: confidence,
		Status:     status,
	}
	if status == classify.StatusImplemented {
		r.Evidence = evidence.Evidence{FilesFound: []string{"lib/impl.ts"}}
	}
	return r
}

func todoResult(file string, line, confidence int, status classify.Status) engine.ScoredResult {
	return engine.ScoredResult{
		Candidate:  candidate.NewTodo(candidate.TodoInfo{File: file, Line: line, Text: "TODO: x"}),
		Confidence: confidence,
		Status:     status,
		Band:       classify.Band(status),
	}
}

func TestPercent(t *testing.T) {
	tests := []struct{ part, total, want int }{
		{1, 3, 33},
		{2, 3, 67},
		{0, 3, 0},
		{3, 3, 100},
		{1, 2, 50},
		{1, 8, 13},
		{1, 200, 1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.total), "%d/%d", tt.part, tt.total)
	}
}

func TestAggregate_GroupRounding(t *testing.T) {
	results := []engine.ScoredResult{
		featureResult("a.md", 1, 40, classify.StatusImplemented),
		featureResult("a.md", 2, 0, classify.StatusMissing),
		featureResult("a.md", 3, 10, classify.StatusPartial),
		featureResult("b.md", 1, 80, classify.StatusImplemented),
		featureResult("b.md", 2, 50, classify.StatusImplemented),
		featureResult("b.md", 3, 0, classify.StatusMissing),
	}
	report := Aggregate(results, ByDocument, opts())

	require.Len(t, report.Groups, 2)
	a, b := report.Groups[0], report.Groups[1]
	assert.Equal(t, "a.md", a.Key)
	assert.Equal(t, 3, a.Total)
	assert.Equal(t, 1, a.Implemented)
	assert.Equal(t, 1, a.Partial)
	assert.Equal(t, 1, a.Missing)
	assert.Equal(t, 33, a.ProgressPercent)

	assert.Equal(t, "b.md", b.Key)
	assert.Equal(t, 67, b.ProgressPercent)

	s := report.Summary
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.Implemented)
	assert.Equal(t, 50, s.ProgressPercent)
	assert.Equal(t, 2, s.LowConfidence)
	assert.Equal(t, 0, s.ModerateConfidence)
	assert.Equal(t, 1, s.HighConfidence)
}

func TestAggregate_TopUncertainOrdering(t *testing.T) {
	results := []engine.ScoredResult{
		featureResult("d.md", 1, 45, classify.StatusImplemented), // low-confidence implemented
		featureResult("d.md", 2, 90, classify.StatusImplemented), // excluded
		featureResult("d.md", 3, 20, classify.StatusPartial),
		featureResult("d.md", 4, 0, classify.StatusMissing),
		featureResult("d.md", 5, 10, classify.StatusPartial),
		featureResult("d.md", 6, 0, classify.StatusMissing),
		featureResult("d.md", 7, 30, classify.StatusImplemented),
	}
	report := Aggregate(results, ByDocument, opts())

	var lines []int
	for _, r := range report.TopUncertain {
		_, line := r.Candidate.Location()
		lines = append(lines, line)
	}
	// Missing first in discovery order, then partial and low-confidence
	// implemented by ascending confidence.
	assert.Equal(t, []int{4, 6, 5, 3, 7, 1}, lines)
}

func TestAggregate_TopNCap(t *testing.T) {
	var results []engine.ScoredResult
	for i := 1; i <= 5; i++ {
		results = append(results, featureResult("d.md", i, 0, classify.StatusMissing))
	}
	o := opts()
	o.TopN = 2
	report := Aggregate(results, ByDocument, o)
	assert.Len(t, report.TopUncertain, 2)

	o.TopN = 0
	report = Aggregate(results, ByDocument, o)
	assert.Empty(t, report.TopUncertain)
}

func TestAggregate_TodoCleanup(t *testing.T) {
	results := []engine.ScoredResult{
		todoResult("src/a.go", 1, 95, classify.StatusVeryHigh),
		todoResult("src/a.go", 2, 90, classify.StatusVeryHigh),
		todoResult("src/a.go", 3, 89, classify.StatusHigh),
		todoResult("src/b.go", 1, 10, classify.StatusActive),
		todoResult("src/b.go", 2, 0, classify.StatusUnknown),
		todoResult("src/b.go", 3, 50, classify.StatusMedium),
	}
	report := Aggregate(results, ByDocument, opts())

	assert.Equal(t, 2, report.Summary.CleanupCount)
	assert.Equal(t, 33, report.Summary.CleanupPercent)
	assert.Equal(t, 1, report.Summary.Unknown)
	assert.Equal(t, 2, report.Summary.ByStatus[classify.StatusVeryHigh])
	assert.Empty(t, report.TopUncertain)

	require.Len(t, report.TopClosable, 3)
	assert.Equal(t, 95, report.TopClosable[0].Confidence)
	assert.Equal(t, 90, report.TopClosable[1].Confidence)
	assert.Equal(t, 89, report.TopClosable[2].Confidence)

	require.Len(t, report.Groups, 2)
	assert.Equal(t, 2, report.Groups[0].Closable)
	assert.Equal(t, 67, report.Groups[0].ProgressPercent)
}

func TestAggregate_Idempotent(t *testing.T) {
	results := []engine.ScoredResult{
		featureResult("a.md", 1, 40, classify.StatusImplemented),
		featureResult("b.md", 2, 0, classify.StatusMissing),
		todoResult("src/a.go", 1, 95, classify.StatusVeryHigh),
	}
	first := Aggregate(results, ByStatus, opts())
	second := Aggregate(results, ByStatus, opts())
	assert.Equal(t, first, second)
}

func TestAggregate_Empty(t *testing.T) {
	report := Aggregate(nil, nil, opts())
	assert.Empty(t, report.Groups)
	assert.Equal(t, 0, report.Summary.Total)
	assert.Equal(t, 0, report.Summary.ProgressPercent)
}

func TestKeyFuncs(t *testing.T) {
	impl := featureResult("docs/plan.md", 1, 40, classify.StatusImplemented)
	impl.Band = classify.BandLow
	missing := featureResult("docs/plan.md", 2, 0, classify.StatusMissing)
	todo := todoResult("src/pkg/a.go", 3, 95, classify.StatusVeryHigh)

	assert.Equal(t, "docs/plan.md", ByDocument(impl))
	assert.Equal(t, "src/pkg/a.go", ByDocument(todo))
	assert.Equal(t, "lib/impl.ts", ByFile(impl))
	assert.Equal(t, "(none)", ByFile(missing))
	assert.Equal(t, "src/pkg/a.go", ByFile(todo))
	assert.Equal(t, "src/pkg", ByDirectory(todo))
	assert.Equal(t, "low", ByBand(impl))
	assert.Equal(t, "veryHigh", ByBand(todo))
	assert.Equal(t, "missing", ByStatus(missing))

	for _, name := range []string{"", "document", "file", "dir", "band", "status"} {
		_, ok := KeyFuncByName(name)
		assert.True(t, ok, name)
	}
	_, ok := KeyFuncByName("color")
	assert.False(t, ok)
}

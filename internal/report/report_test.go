package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donecheck/internal/aggregate"
	"donecheck/internal/candidate"
	"donecheck/internal/classify"
	"donecheck/internal/config"
	"donecheck/internal/engine"
	"donecheck/internal/errors"
	"donecheck/internal/evidence"
)

var generated = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func featureDoc() *Document {
	results := []engine.ScoredResult{
		{
			Candidate:      candidate.NewFeature(candidate.FeatureInfo{Description: "Add rate limiting to API client", Document: "docs/ROADMAP.md", Line: 3}),
			Evidence:       evidence.Evidence{FilesFound: []string{"lib/rateLimiter.ts"}},
			Confidence:     30,
			Status:         classify.StatusImplemented,
			Band:           classify.BandLow,
			Recommendation: "Likely implemented (low confidence): add test coverage, verify it is wired in.",
			Reasons:        []string{"1 implementation file found: lib/rateLimiter.ts (+30)"},
		},
		{
			Candidate:      candidate.NewFeature(candidate.FeatureInfo{Description: "Update README | docs", Document: "docs/ROADMAP.md", Line: 4}),
			Confidence:     0,
			Status:         classify.StatusMissing,
			Band:           classify.BandLow,
			Recommendation: "No implementation evidence found.",
			Reasons:        []string{"No evidence found"},
		},
	}
	batch := &engine.BatchResult{
		RunID:         "run-1",
		ReferenceTime: generated,
		Results:       results,
		Warnings:      []errors.Warning{{Code: errors.CollectionFailed, Path: "src/blob.ts", Message: "skipped unreadable file: binary file"}},
	}
	agg := aggregate.Aggregate(results, aggregate.ByDocument, aggregate.OptionsFromConfig(config.DefaultConfig()))
	return New(candidate.KindFeature, batch, agg, Meta{GeneratedAt: generated, RepoRoot: "/repo"})
}

func todoDoc() *Document {
	results := []engine.ScoredResult{
		{
			Candidate:      candidate.NewTodo(candidate.TodoInfo{File: "archive/old.go", Line: 7, Text: "TODO: handle escapes", Type: "TODO"}),
			Evidence:       evidence.Evidence{Archival: evidence.ArchivalSignal{Archived: true, Reason: "file is under \"archive/\""}},
			Confidence:     90,
			Status:         classify.StatusVeryHigh,
			Band:           classify.BandVeryHigh,
			Recommendation: "Safe to close",
		},
		{
			Candidate:      candidate.NewTodo(candidate.TodoInfo{File: "src/a.go", Line: 2, Text: "FIXME: race", Type: "FIXME"}),
			Confidence:     0,
			Status:         classify.StatusActive,
			Band:           classify.BandActive,
			Recommendation: "Keep as-is",
		},
	}
	batch := &engine.BatchResult{RunID: "run-2", ReferenceTime: generated, Results: results}
	agg := aggregate.Aggregate(results, aggregate.ByDocument, aggregate.OptionsFromConfig(config.DefaultConfig()))
	doc := New(candidate.KindTodo, batch, agg, Meta{GeneratedAt: generated})
	doc.Trend = &Trend{PreviousRunID: "run-0", PreviousAt: generated.AddDate(0, 0, -7), Direction: TrendImproving, ProgressDelta: 25, PreviousPercent: 25}
	return doc
}

func render(t *testing.T, format Format, opts Options, doc *Document) string {
	t.Helper()
	r, err := NewRenderer(format, opts)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, doc))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatHuman, "JSON": FormatJSON, "md": FormatMarkdown, "csv": FormatCSV, "text": FormatHuman} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
	_, err = NewRenderer(Format("xml"), Options{})
	assert.Error(t, err)
}

func TestJSONRenderer(t *testing.T) {
	doc := featureDoc()
	first := render(t, FormatJSON, Options{}, doc)
	second := render(t, FormatJSON, Options{}, doc)
	assert.Equal(t, first, second)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(first), &decoded))
	assert.Equal(t, "1", decoded["schemaVersion"])
	assert.Equal(t, "feature", decoded["kind"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded["generatedAt"])

	results := decoded["results"].([]interface{})
	require.Len(t, results, 2)
	first0 := results[0].(map[string]interface{})
	assert.EqualValues(t, 30, first0["confidence"])
	assert.Equal(t, "implemented", first0["status"])

	missing := results[1].(map[string]interface{})
	assert.EqualValues(t, 0, missing["confidence"], "zero confidence is kept")

	summary := decoded["aggregate"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.EqualValues(t, 50, summary["progressPercent"])
}

func TestDeterministicEncode_SortsMapKeys(t *testing.T) {
	data, err := DeterministicEncode(map[string]interface{}{"b": 1, "a": []int{}, "c": map[string]int{"z": 1, "y": 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"c":{"y":2,"z":1}}`, string(data))

	type inner struct {
		Name  string    `json:"name"`
		Skip  string    `json:"-"`
		Empty string    `json:"empty,omitempty"`
		When  time.Time `json:"when,omitempty"`
	}
	data, err = DeterministicEncode(inner{Name: "x", Skip: "y"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(data))
}

func TestMarkdownRenderer_Features(t *testing.T) {
	out := render(t, FormatMarkdown, Options{Verbose: true}, featureDoc())

	assert.True(t, strings.HasPrefix(out, "# Feature Implementation Report\n"))
	assert.Contains(t, out, "| Implemented | 1 |")
	assert.Contains(t, out, "**Progress:** 50%")
	assert.Contains(t, out, "## Needs Attention")
	assert.Contains(t, out, "implemented (low)")
	assert.Contains(t, out, `Update README \| docs`, "pipes are escaped in tables")
	assert.Contains(t, out, "- 1 implementation file found: lib/rateLimiter.ts (+30)")
	assert.Contains(t, out, "## Warnings (1)")
}

func TestMarkdownRenderer_Todos(t *testing.T) {
	out := render(t, FormatMarkdown, Options{}, todoDoc())

	assert.True(t, strings.HasPrefix(out, "# TODO Completion Report\n"))
	assert.Contains(t, out, "| veryHigh | 1 | Safe to close |")
	assert.Contains(t, out, "| active | 1 | Keep as-is |")
	assert.Contains(t, out, "**Potential cleanup:** 1 of 2 TODOs (50%)")
	assert.Contains(t, out, "## Trend")
	assert.Contains(t, out, "Improving since run run-0")
	assert.Contains(t, out, "## Safe to Close")
	assert.NotContains(t, out, "### Evidence")
}

func TestCSVRenderer(t *testing.T) {
	out := render(t, FormatCSV, Options{}, featureDoc())

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "feature:docs/ROADMAP.md:3", rows[1][0])
	assert.Equal(t, "30", rows[1][7])
	assert.Equal(t, "lib/rateLimiter.ts", rows[1][9])
	assert.Equal(t, "Update README | docs", rows[2][4])
}

func TestHumanRenderer(t *testing.T) {
	out := render(t, FormatHuman, Options{NoColor: true}, todoDoc())

	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "TODO Completion Report")
	assert.Contains(t, out, "Potential cleanup: 1 of 2 (50%)")
	assert.Contains(t, out, "Trend: improving (+25 points since 2026-02-22)")
	assert.Contains(t, out, "archive/old.go:7")
	assert.Contains(t, out, "→ Safe to close")

	out = render(t, FormatHuman, Options{NoColor: true, Verbose: true}, featureDoc())
	assert.Contains(t, out, "Implemented:  1 (high 0, moderate 0, low 1)")
	assert.Contains(t, out, "All results:")
	assert.Contains(t, out, "- 1 implementation file found")
	assert.Contains(t, out, "Warnings (1):")
}

// Package report turns scored results and their aggregate into documents:
// JSON for machines, markdown and CSV for sharing, colored text for the console.
// Rendering never changes a score.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"donecheck/internal/aggregate"
	"donecheck/internal/candidate"
	"donecheck/internal/engine"
	"donecheck/internal/errors"
	"donecheck/internal/version"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatHuman    Format = "human"
)

// Formats lists the supported formats.
var Formats = []Format{FormatHuman, FormatJSON, FormatMarkdown, FormatCSV}

// ParseFormat resolves a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "human", "text":
		return FormatHuman, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Trend compares a run with the previous run of the same kind.
type Trend struct {
	PreviousRunID   string    `json:"previousRunId"`
	PreviousAt      time.Time `json:"previousAt"`
	Direction       string    `json:"direction"`
	ProgressDelta   int       `json:"progressDelta"`
	PreviousPercent int       `json:"previousPercent"`
	// Improved and Regressed list candidate IDs whose status moved.
	Improved  []string `json:"improved,omitempty"`
	Regressed []string `json:"regressed,omitempty"`
	Added     int      `json:"added"`
	Removed   int      `json:"removed"`
}

// Trend directions.
const (
	TrendFirstRun  = "first-run"
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendSame      = "same"
)

// Document is everything a renderer needs.
type Document struct {
	SchemaVersion string                `json:"schemaVersion"`
	ToolVersion   string                `json:"toolVersion"`
	Kind          candidate.Kind        `json:"kind"`
	RunID         string                `json:"runId"`
	GeneratedAt   time.Time             `json:"generatedAt"`
	ReferenceTime time.Time             `json:"referenceTime"`
	RepoRoot      string                `json:"repoRoot,omitempty"`
	GroupBy       string                `json:"groupBy,omitempty"`
	Results       []engine.ScoredResult `json:"results"`
	Aggregate     *aggregate.Report     `json:"aggregate"`
	Warnings      []errors.Warning      `json:"warnings,omitempty"`
	Skipped       int                   `json:"skipped,omitempty"`
	Trend         *Trend                `json:"trend,omitempty"`
}

// Meta carries the run details that are not part of the batch.
type Meta struct {
	RepoRoot    string
	GroupBy     string
	GeneratedAt time.Time
}

// New assembles a document from a batch and its aggregate.
func New(kind candidate.Kind, batch *engine.BatchResult, agg *aggregate.Report, meta Meta) *Document {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	return &Document{
		SchemaVersion: version.ReportSchemaVersion,
		ToolVersion:   version.Version,
		Kind:          kind,
		RunID:         batch.RunID,
		GeneratedAt:   meta.GeneratedAt,
		ReferenceTime: batch.ReferenceTime,
		RepoRoot:      meta.RepoRoot,
		GroupBy:       meta.GroupBy,
		Results:       batch.Results,
		Aggregate:     agg,
		Warnings:      batch.Warnings,
		Skipped:       batch.Skipped,
	}
}

// Title is the heading used by the text formats.
func (d *Document) Title() string {
	if d.Kind == candidate.KindTodo {
		return "TODO Completion Report"
	}
	return "Feature Implementation Report"
}

// Options tunes the text renderers.
type Options struct {
	// Verbose lists reasons under each result.
	Verbose bool
	// NoColor disables ANSI colors in the human renderer.
	NoColor bool
}

// Renderer writes a document in one format.
type Renderer interface {
	Render(w io.Writer, doc *Document) error
}

// NewRenderer returns the renderer for format.
func NewRenderer(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatMarkdown:
		return markdownRenderer{opts: opts}, nil
	case FormatCSV:
		return csvRenderer{}, nil
	case FormatHuman:
		return newHumanRenderer(opts), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, doc *Document) error {
	data, err := DeterministicEncodeIndented(doc, "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// label is the short location of a result for text output.
func label(r engine.ScoredResult) string {
	file, line := r.Candidate.Location()
	return fmt.Sprintf("%s:%d", file, line)
}

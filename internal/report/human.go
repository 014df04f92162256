package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"donecheck/internal/candidate"
	"donecheck/internal/classify"
	"donecheck/internal/engine"
)

type palette struct {
	title, good, warn, bad, dim *color.Color
}

type humanRenderer struct {
	opts Options
	p    palette
}

func newHumanRenderer(opts Options) humanRenderer {
	p := palette{
		title: color.New(color.FgCyan, color.Bold),
		good:  color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		bad:   color.New(color.FgRed),
		dim:   color.New(color.FgHiBlack),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{p.title, p.good, p.warn, p.bad, p.dim} {
			c.DisableColor()
		}
	}
	return humanRenderer{opts: opts, p: p}
}

func (h humanRenderer) Render(w io.Writer, doc *Document) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", h.p.title.Sprint(doc.Title()))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if doc.Kind == candidate.KindTodo {
		h.todoSummary(&b, doc)
	} else {
		h.featureSummary(&b, doc)
	}

	if t := doc.Trend; t != nil && t.Direction != TrendFirstRun {
		c := h.p.dim
		switch t.Direction {
		case TrendImproving:
			c = h.p.good
		case TrendDeclining:
			c = h.p.bad
		}
		fmt.Fprintf(&b, "Trend: %s (%+d points since %s)\n\n",
			c.Sprint(t.Direction), t.ProgressDelta, t.PreviousAt.UTC().Format("2006-01-02"))
	}

	if doc.Kind == candidate.KindTodo {
		h.list(&b, "Safe to close:", doc.Aggregate.TopClosable)
	} else {
		h.list(&b, "Needs attention:", doc.Aggregate.TopUncertain)
	}

	if h.opts.Verbose {
		h.list(&b, "All results:", doc.Results)
	}

	if len(doc.Warnings) > 0 {
		fmt.Fprintf(&b, "%s\n", h.p.warn.Sprintf("Warnings (%d):", len(doc.Warnings)))
		for _, wn := range doc.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", wn.String())
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (h humanRenderer) featureSummary(b *strings.Builder, doc *Document) {
	s := doc.Aggregate.Summary
	fmt.Fprintf(b, "Features:     %d\n", s.Total)
	fmt.Fprintf(b, "Implemented:  %s (high %d, moderate %d, low %d)\n",
		h.p.good.Sprint(s.Implemented), s.HighConfidence, s.ModerateConfidence, s.LowConfidence)
	fmt.Fprintf(b, "Partial:      %s\n", h.p.warn.Sprint(s.Partial))
	fmt.Fprintf(b, "Missing:      %s\n", h.p.bad.Sprint(s.Missing))
	if s.Unknown > 0 {
		fmt.Fprintf(b, "Unknown:      %s\n", h.p.dim.Sprint(s.Unknown))
	}
	fmt.Fprintf(b, "Progress:     %d%%\n\n", s.ProgressPercent)
}

func (h humanRenderer) todoSummary(b *strings.Builder, doc *Document) {
	s := doc.Aggregate.Summary
	fmt.Fprintf(b, "TODOs: %d\n", s.Total)
	for _, st := range classify.TodoStatuses {
		fmt.Fprintf(b, "  %-9s %4d  %s\n", st, s.ByStatus[st], h.statusColor(st).Sprint(classify.Action(st)))
	}
	if s.Unknown > 0 {
		fmt.Fprintf(b, "  %-9s %4d\n", classify.StatusUnknown, s.Unknown)
	}
	fmt.Fprintf(b, "Potential cleanup: %s of %d (%d%%)\n\n",
		h.p.good.Sprint(s.CleanupCount), s.Total, s.CleanupPercent)
}

func (h humanRenderer) list(b *strings.Builder, title string, results []engine.ScoredResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n", h.p.title.Sprint(title))
	for _, r := range results {
		fmt.Fprintf(b, "  %s %3d%%  %s\n", h.statusColor(r.Status).Sprintf("%-11s", r.Status), r.Confidence, r.Candidate.Text())
		fmt.Fprintf(b, "               %s\n", h.p.dim.Sprint(label(r)))
		fmt.Fprintf(b, "               → %s\n", r.Recommendation)
		if h.opts.Verbose {
			for _, reason := range r.Reasons {
				fmt.Fprintf(b, "                 - %s\n", reason)
			}
		}
	}
	b.WriteString("\n")
}

func (h humanRenderer) statusColor(s classify.Status) *color.Color {
	switch s {
	case classify.StatusImplemented, classify.StatusVeryHigh:
		return h.p.good
	case classify.StatusPartial, classify.StatusHigh, classify.StatusMedium:
		return h.p.warn
	case classify.StatusMissing:
		return h.p.bad
	default:
		return h.p.dim
	}
}

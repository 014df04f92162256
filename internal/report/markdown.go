package report

import (
	"fmt"
	"io"
	"strings"

	"donecheck/internal/candidate"
	"donecheck/internal/classify"
	"donecheck/internal/engine"
)

type markdownRenderer struct {
	opts Options
}

func (m markdownRenderer) Render(w io.Writer, doc *Document) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Title())
	fmt.Fprintf(&b, "_Run %s, generated %s by donecheck %s_\n\n",
		doc.RunID, doc.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), doc.ToolVersion)

	if doc.Kind == candidate.KindTodo {
		m.todoSummary(&b, doc)
	} else {
		m.featureSummary(&b, doc)
	}
	m.trend(&b, doc.Trend)
	m.groups(&b, doc)

	if doc.Kind == candidate.KindTodo {
		m.resultList(&b, "Safe to Close", doc.Aggregate.TopClosable)
	} else {
		m.resultList(&b, "Needs Attention", doc.Aggregate.TopUncertain)
	}
	m.details(&b, doc)
	m.warnings(&b, doc)

	_, err := io.WriteString(w, b.String())
	return err
}

func (m markdownRenderer) featureSummary(b *strings.Builder, doc *Document) {
	s := doc.Aggregate.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(b, "| Features | %d |\n", s.Total)
	fmt.Fprintf(b, "| Implemented | %d |\n", s.Implemented)
	fmt.Fprintf(b, "| ↳ high confidence | %d |\n", s.HighConfidence)
	fmt.Fprintf(b, "| ↳ moderate confidence | %d |\n", s.ModerateConfidence)
	fmt.Fprintf(b, "| ↳ low confidence | %d |\n", s.LowConfidence)
	fmt.Fprintf(b, "| Partial | %d |\n", s.Partial)
	fmt.Fprintf(b, "| Missing | %d |\n", s.Missing)
	if s.Unknown > 0 {
		fmt.Fprintf(b, "| Unknown | %d |\n", s.Unknown)
	}
	fmt.Fprintf(b, "\n**Progress:** %d%%\n\n", s.ProgressPercent)
}

func (m markdownRenderer) todoSummary(b *strings.Builder, doc *Document) {
	s := doc.Aggregate.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Band | Count | Action |\n|---|---|---|\n")
	for _, st := range classify.TodoStatuses {
		fmt.Fprintf(b, "| %s | %d | %s |\n", st, s.ByStatus[st], classify.Action(st))
	}
	if s.Unknown > 0 {
		fmt.Fprintf(b, "| unknown | %d | Re-run |\n", s.Unknown)
	}
	fmt.Fprintf(b, "\n**Potential cleanup:** %d of %d TODOs (%d%%)\n\n", s.CleanupCount, s.Total, s.CleanupPercent)
}

func (m markdownRenderer) trend(b *strings.Builder, t *Trend) {
	if t == nil || t.Direction == TrendFirstRun {
		return
	}
	b.WriteString("## Trend\n\n")
	fmt.Fprintf(b, "%s since run %s (%s): progress %d%% → %+d points.\n",
		strings.ToUpper(t.Direction[:1])+t.Direction[1:], t.PreviousRunID,
		t.PreviousAt.UTC().Format("2006-01-02"), t.PreviousPercent, t.ProgressDelta)
	if t.Added > 0 || t.Removed > 0 {
		fmt.Fprintf(b, "%d added, %d removed.\n", t.Added, t.Removed)
	}
	if len(t.Improved) > 0 {
		fmt.Fprintf(b, "\nImproved: %s\n", strings.Join(t.Improved, ", "))
	}
	if len(t.Regressed) > 0 {
		fmt.Fprintf(b, "\nRegressed: %s\n", strings.Join(t.Regressed, ", "))
	}
	b.WriteString("\n")
}

func (m markdownRenderer) groups(b *strings.Builder, doc *Document) {
	if len(doc.Aggregate.Groups) < 2 {
		return
	}
	by := doc.GroupBy
	if by == "" {
		by = "document"
	}
	fmt.Fprintf(b, "## By %s\n\n", by)
	if doc.Kind == candidate.KindTodo {
		b.WriteString("| Group | Total | Safe to close | Progress |\n|---|---|---|---|\n")
		for _, g := range doc.Aggregate.Groups {
			fmt.Fprintf(b, "| %s | %d | %d | %d%% |\n", escapeCell(g.Key), g.Total, g.Closable, g.ProgressPercent)
		}
	} else {
		b.WriteString("| Group | Total | Implemented | Partial | Missing | Progress |\n|---|---|---|---|---|---|\n")
		for _, g := range doc.Aggregate.Groups {
			fmt.Fprintf(b, "| %s | %d | %d | %d | %d | %d%% |\n",
				escapeCell(g.Key), g.Total, g.Implemented, g.Partial, g.Missing, g.ProgressPercent)
		}
	}
	b.WriteString("\n")
}

func (m markdownRenderer) resultList(b *strings.Builder, title string, results []engine.ScoredResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, r := range results {
		fmt.Fprintf(b, "- **%s** (%d%%, %s) `%s`: %s\n",
			escapeInline(r.Candidate.Text()), r.Confidence, r.Status, label(r), r.Recommendation)
	}
	b.WriteString("\n")
}

func (m markdownRenderer) details(b *strings.Builder, doc *Document) {
	if len(doc.Results) == 0 {
		return
	}
	b.WriteString("## Results\n\n")
	b.WriteString("| Item | Location | Status | Confidence | Recommendation |\n|---|---|---|---|---|\n")
	for _, r := range doc.Results {
		fmt.Fprintf(b, "| %s | `%s` | %s | %d%% | %s |\n",
			escapeCell(r.Candidate.Text()), label(r), statusCell(r), r.Confidence, escapeCell(r.Recommendation))
	}
	b.WriteString("\n")

	if !m.opts.Verbose {
		return
	}
	b.WriteString("### Evidence\n\n")
	for _, r := range doc.Results {
		fmt.Fprintf(b, "#### %s\n\n", escapeInline(r.Candidate.Text()))
		for _, reason := range r.Reasons {
			fmt.Fprintf(b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}
}

func (m markdownRenderer) warnings(b *strings.Builder, doc *Document) {
	if len(doc.Warnings) == 0 {
		return
	}
	fmt.Fprintf(b, "## Warnings (%d)\n\n", len(doc.Warnings))
	for _, w := range doc.Warnings {
		fmt.Fprintf(b, "- %s\n", escapeInline(w.String()))
	}
	b.WriteString("\n")
}

func statusCell(r engine.ScoredResult) string {
	if r.Status == classify.StatusImplemented && r.Band != "" && r.Band != classify.BandHigh {
		return fmt.Sprintf("%s (%s)", r.Status, r.Band)
	}
	return string(r.Status)
}

var cellEscaper = strings.NewReplacer("|", "\\|", "\n", " ", "\r", "")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

var inlineEscaper = strings.NewReplacer("*", "\\*", "_", "\\_", "`", "'", "\n", " ")

func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}

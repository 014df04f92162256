package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"id", "kind", "location", "line", "text", "status", "band", "confidence",
	"recommendation", "files", "tests", "usage", "patterns", "reasons",
}

type csvRenderer struct{}

// Render writes one row per result.
func (csvRenderer) Render(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range doc.Results {
		file, line := r.Candidate.Location()
		row := []string{
			r.Candidate.ID(),
			string(r.Candidate.Kind),
			file,
			strconv.Itoa(line),
			r.Candidate.Text(),
			string(r.Status),
			string(r.Band),
			strconv.Itoa(r.Confidence),
			r.Recommendation,
			strings.Join(r.Evidence.FilesFound, ";"),
			strings.Join(r.Evidence.TestsFound, ";"),
			strconv.Itoa(len(r.Evidence.UsageDetected)),
			strconv.Itoa(r.Evidence.DistinctKeywords()),
			strings.Join(r.Reasons, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

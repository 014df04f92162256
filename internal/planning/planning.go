// Package planning extracts planned features from planning documents:
// markdown checklists and bullets under planned headings, front matter
// feature lists (YAML or TOML) and YAML roadmap files.
package planning

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/errors"
	"donecheck/internal/repoindex"
)

// Options configures an Extractor.
type Options struct {
	// Paths are files or directories (relative to the repo root) holding planning documents.
	// Empty means the whole repository.
	Paths []string
	// Include filters documents by name, see repoindex.Match.
	Include []string
	// PlannedHeadings are words that mark a heading, or a YAML key, as listing planned work.
	PlannedHeadings []string
	MaxReadBytes    int
	Logger          *slog.Logger
}

// OptionsFromConfig builds extractor options from the loaded config.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Paths:           cfg.Planning.Paths,
		Include:         cfg.Planning.Include,
		PlannedHeadings: cfg.Planning.PlannedHeadings,
		MaxReadBytes:    cfg.Collectors.MaxReadBytes,
		Logger:          logger,
	}
}

// Extractor finds feature candidates in planning documents.
type Extractor struct {
	opts     Options
	headings []string
	logger   *slog.Logger
}

// New creates an extractor.
func New(opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Extractor{opts: opts, logger: opts.Logger}
	for _, h := range opts.PlannedHeadings {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			e.headings = append(e.headings, h)
		}
	}
	return e
}

// Documents lists the planning documents in index, sorted.
func (e *Extractor) Documents(index repoindex.Index) []string {
	var docs []string
	for _, file := range index.ListFiles("") {
		if e.inPaths(file) && e.included(file) {
			docs = append(docs, file)
		}
	}
	return docs
}

// Extract returns feature candidates from every planning document in index,
// ordered by document then line. Unreadable documents and malformed front
// matter produce COLLECTION_FAILED warnings.
func (e *Extractor) Extract(ctx context.Context, index repoindex.Index) ([]candidate.Item, []errors.Warning, error) {
	var (
		items    []candidate.Item
		warnings []errors.Warning
	)
	docs := e.Documents(index)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		content, err := index.ReadText(doc, e.opts.MaxReadBytes)
		if err != nil {
			warnings = append(warnings, errors.Warning{
				Code:    errors.CollectionFailed,
				Path:    doc,
				Message: "skipped unreadable planning document: " + err.Error(),
			})
			continue
		}
		found, err := e.ParseDocument(doc, content)
		if err != nil {
			warnings = append(warnings, errors.Warning{
				Code:    errors.CollectionFailed,
				Path:    doc,
				Message: err.Error(),
			})
			e.logger.Warn("Planning document partly parsed", "path", doc, "error", err.Error())
		}
		items = append(items, found...)
	}

	e.logger.Debug("Planning extraction finished", "documents", len(docs), "features", len(items))
	return items, warnings, nil
}

// ParseDocument extracts the features of one document. A non-nil error
// describes a part that could not be parsed; items found elsewhere are still returned.
func (e *Extractor) ParseDocument(doc, content string) ([]candidate.Item, error) {
	var (
		entries []entry
		err     error
	)
	switch strings.ToLower(path.Ext(doc)) {
	case ".yaml", ".yml":
		entries, err = e.parseYAMLRoadmap(content)
	default:
		entries, err = e.parseMarkdown(content)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Line < entries[j].Line })
	items := make([]candidate.Item, 0, len(entries))
	seen := make(map[int]bool)
	for _, en := range entries {
		if seen[en.Line] || !meaningful(en.Description) {
			continue
		}
		seen[en.Line] = true
		items = append(items, candidate.NewFeature(candidate.FeatureInfo{
			Description: en.Description,
			Document:    doc,
			Line:        en.Line,
			Section:     en.Section,
			PriorClaim:  en.Claim,
		}))
	}
	if err != nil {
		return items, fmt.Errorf("parse %s: %w", doc, err)
	}
	return items, nil
}

// entry is a feature before it is bound to a document.
type entry struct {
	Line        int
	Description string
	Section     string
	Claim       string
}

// planned reports whether a heading or key names a list of planned work.
func (e *Extractor) planned(title string) bool {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	for _, w := range words {
		for _, h := range e.headings {
			if w == h || w == h+"s" {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) inPaths(file string) bool {
	if len(e.opts.Paths) == 0 {
		return true
	}
	for _, p := range e.opts.Paths {
		p = strings.Trim(p, "/")
		if p == "" || p == "." || file == p || strings.HasPrefix(file, p+"/") || repoindex.Match(p, file) {
			return true
		}
	}
	return false
}

func (e *Extractor) included(file string) bool {
	if len(e.opts.Include) == 0 {
		return true
	}
	for _, inc := range e.opts.Include {
		if repoindex.Match(inc, file) {
			return true
		}
	}
	return false
}

// meaningful rejects fragments too short to describe any work.
func meaningful(s string) bool {
	if len([]rune(s)) < 3 {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}

// claimFor normalizes a status field into a prior claim.
func claimFor(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

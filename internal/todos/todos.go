// Package todos finds TODO-style comments in source files and turns them into candidates.
//
// Comments are located with tree-sitter when the binary is built with cgo and the
// language is supported; everything else goes through a line scanner that knows the
// comment leaders of common languages.
package todos

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/errors"
	"donecheck/internal/paths"
	"donecheck/internal/repoindex"
)

// Options configures an Extractor.
type Options struct {
	Markers       []string
	Extensions    []string
	UseTreeSitter bool
	// MaxReadBytes bounds each file read; zero means no limit.
	MaxReadBytes int
	Logger       *slog.Logger
}

// OptionsFromConfig builds extractor options from the loaded config.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Markers:       cfg.Todos.Markers,
		Extensions:    cfg.Collectors.SourceExtensions,
		UseTreeSitter: cfg.Todos.UseTreeSitter,
		MaxReadBytes:  cfg.Collectors.MaxReadBytes,
		Logger:        logger,
	}
}

// Extractor scans an index for TODO comments.
type Extractor struct {
	opts       Options
	extensions map[string]bool
	marker     *regexp.Regexp
	parser     *treeParser
	logger     *slog.Logger
}

// comment is one line of comment text with leaders still attached.
type comment struct {
	Line int
	Text string
}

var (
	bracketTag  = regexp.MustCompile(`\[([A-Za-z0-9 :=-]+)\]`)
	priorityKV  = regexp.MustCompile(`(?i)\bpriority\s*[:=]\s*(\w+)`)
	leadingBang = regexp.MustCompile(`^!{1,3}`)
)

// New creates an extractor. Markers are matched as whole words at the start of a comment.
func New(opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Extractor{
		opts:       opts,
		extensions: make(map[string]bool, len(opts.Extensions)),
		logger:     opts.Logger,
	}
	for _, ext := range opts.Extensions {
		e.extensions[strings.ToLower(ext)] = true
	}

	quoted := make([]string, 0, len(opts.Markers))
	for _, m := range opts.Markers {
		if m = strings.TrimSpace(m); m != "" {
			quoted = append(quoted, regexp.QuoteMeta(m))
		}
	}
	// Longest first so FIXME is not read as a shorter marker sharing a prefix.
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	if len(quoted) > 0 {
		e.marker = regexp.MustCompile(`(?i)^@?(` + strings.Join(quoted, "|") + `)\b(?:\(([^)]*)\))?(.*)$`)
	}
	if opts.UseTreeSitter {
		e.parser = newTreeParser()
	}
	return e
}

// Extract returns TODO candidates for every supported file in index, ordered by file then line.
// Unreadable files are skipped with a COLLECTION_FAILED warning.
func (e *Extractor) Extract(ctx context.Context, index repoindex.Index) ([]candidate.Item, []errors.Warning, error) {
	var (
		items    []candidate.Item
		warnings []errors.Warning
	)
	if e.marker == nil {
		return nil, nil, nil
	}

	for _, file := range index.ListFiles("") {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !e.Supports(file) || paths.IsStatePath(file) {
			continue
		}
		src, err := index.ReadText(file, e.opts.MaxReadBytes)
		if err != nil {
			warnings = append(warnings, errors.Warning{
				Code:    errors.CollectionFailed,
				Path:    file,
				Message: "skipped unreadable file: " + err.Error(),
			})
			e.logger.Debug("Skipping unreadable file", "path", file, "error", err.Error())
			continue
		}
		items = append(items, e.ExtractSource(ctx, file, src)...)
	}

	e.logger.Debug("TODO extraction finished", "todos", len(items), "warnings", len(warnings))
	return items, warnings, nil
}

// Supports reports whether file has one of the configured source extensions.
func (e *Extractor) Supports(file string) bool {
	return e.extensions[strings.ToLower(path.Ext(file))]
}

// ExtractSource returns the TODO candidates in one file's content.
func (e *Extractor) ExtractSource(ctx context.Context, file, src string) []candidate.Item {
	if e.marker == nil {
		return nil
	}
	comments, ok := e.parser.comments(ctx, file, []byte(src))
	if !ok {
		comments = scanComments(file, src)
	}

	var items []candidate.Item
	seen := make(map[int]bool)
	for _, c := range comments {
		if seen[c.Line] {
			continue
		}
		info, ok := e.parse(c.Text)
		if !ok {
			continue
		}
		seen[c.Line] = true
		info.File = file
		info.Line = c.Line
		items = append(items, candidate.NewTodo(info))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Todo.Line < items[j].Todo.Line })
	return items
}

// parse reads one comment line. The returned info has no location.
func (e *Extractor) parse(raw string) (candidate.TodoInfo, bool) {
	body := stripLeaders(raw)
	m := e.marker.FindStringSubmatch(body)
	if m == nil {
		return candidate.TodoInfo{}, false
	}
	word, tag, rest := m[1], m[2], m[3]
	// Lowercase markers only count when punctuated, so prose like "todo list" is ignored.
	if word != strings.ToUpper(word) && !strings.HasPrefix(rest, ":") && m[2] == "" {
		return candidate.TodoInfo{}, false
	}

	todoType := strings.ToUpper(word)
	priority := candidate.PriorityFor(todoType)
	explicit := false
	if p, ok := priorityFrom(tag); ok {
		priority, explicit = p, true
	}

	text := strings.TrimSpace(rest)
	text = strings.TrimLeft(text, ":-– ")
	if loc := leadingBang.FindString(text); loc != "" {
		if !explicit {
			priority, explicit = candidate.PriorityHigh, true
		}
		text = strings.TrimSpace(text[len(loc):])
	}
	if sm := priorityKV.FindStringSubmatchIndex(text); sm != nil {
		if p, ok := priorityFrom(text[sm[2]:sm[3]]); ok {
			if !explicit {
				priority, explicit = p, true
			}
			text = strings.TrimSpace(text[:sm[0]] + text[sm[1]:])
		}
	}
	for _, sm := range bracketTag.FindAllStringSubmatchIndex(text, -1) {
		if p, ok := priorityFrom(text[sm[2]:sm[3]]); ok {
			if !explicit {
				priority, explicit = p, true
			}
			text = strings.TrimSpace(text[:sm[0]] + text[sm[1]:])
			break
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return candidate.TodoInfo{}, false
	}
	return candidate.TodoInfo{Text: text, Type: todoType, Priority: priority}, true
}

// priorityFrom maps an explicit priority marker such as "high", "P1" or "priority: low".
func priorityFrom(tag string) (candidate.Priority, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if m := priorityKV.FindStringSubmatch(tag); m != nil {
		tag = strings.ToLower(m[1])
	}
	for _, part := range strings.FieldsFunc(tag, func(r rune) bool { return r == ',' || r == ' ' || r == '/' }) {
		switch part {
		case "high", "urgent", "critical", "p0", "p1":
			return candidate.PriorityHigh, true
		case "medium", "med", "normal", "p2":
			return candidate.PriorityMedium, true
		case "low", "minor", "p3", "p4":
			return candidate.PriorityLow, true
		}
	}
	return "", false
}

// stripLeaders removes comment delimiters around a single line of comment text.
func stripLeaders(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"*/", "-->"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	for {
		trimmed := s
		for _, leader := range []string{"<!--", "///", "//!", "//", "/**", "/*", "#", "--", ";", "*", "\"\"\"", "'''"} {
			if strings.HasPrefix(trimmed, leader) {
				trimmed = strings.TrimSpace(trimmed[len(leader):])
				break
			}
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

package evidence

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/errors"
	"donecheck/internal/paths"
	"donecheck/internal/repoindex"
	"donecheck/internal/tasktype"
)

// Collector gathers evidence for one candidate from a read-only index.
type Collector interface {
	Collect(ctx context.Context, item candidate.Item, index repoindex.Index) (Evidence, []errors.Warning)
}

// AgeSource reports when a line was last authored.
type AgeSource interface {
	Name() string
	LineTime(ctx context.Context, file string, line int) (time.Time, error)
}

// ReferenceSource finds references to a file from elsewhere in the repository.
type ReferenceSource interface {
	References(ctx context.Context, file string) ([]UsageSite, error)
}

// Options configures a Pipeline.
type Options struct {
	Config     config.CollectorsConfig
	TaskTypes  *tasktype.Matcher
	Ages       AgeSource
	References ReferenceSource
	// ReferenceTime is "now" for age computations; zero means time.Now() at construction.
	ReferenceTime time.Time
	Logger        *slog.Logger
}

// Pipeline runs every collector in a fixed order and merges their findings.
type Pipeline struct {
	cfg        config.CollectorsConfig
	taskTypes  *tasktype.Matcher
	ages       AgeSource
	references ReferenceSource
	refTime    time.Time
	logger     *slog.Logger

	extensions  map[string]bool
	buildDirs   map[string]bool
	testDirs    map[string]bool
	archiveDirs map[string]bool
}

// New creates a collector pipeline.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReferenceTime.IsZero() {
		opts.ReferenceTime = time.Now()
	}
	if opts.TaskTypes == nil {
		opts.TaskTypes = tasktype.NewMatcher(nil)
	}
	return &Pipeline{
		cfg:         opts.Config,
		taskTypes:   opts.TaskTypes,
		ages:        opts.Ages,
		references:  opts.References,
		refTime:     opts.ReferenceTime,
		logger:      opts.Logger,
		extensions:  lowerSet(opts.Config.SourceExtensions),
		buildDirs:   lowerSet(opts.Config.BuildDirs),
		testDirs:    lowerSet(opts.Config.TestDirs),
		archiveDirs: lowerSet(opts.Config.ArchiveSegments),
	}
}

// ReferenceTime returns the time ages are measured against.
func (p *Pipeline) ReferenceTime() time.Time {
	return p.refTime
}

// Corpus is an index with its source and test files pre-sorted.
// Build one per batch with NewCorpus and pass it to Collect.
type Corpus struct {
	repoindex.Index
	// Sources are source files outside build and test locations.
	Sources []string
	// Tests are test source files outside build locations.
	Tests []string
}

// NewCorpus classifies the files of index once.
func (p *Pipeline) NewCorpus(index repoindex.Index) *Corpus {
	c := &Corpus{Index: index}
	for _, f := range index.ListFiles("") {
		if !p.isSource(f) || p.inBuildDir(f) {
			continue
		}
		if p.IsTestFile(f) {
			c.Tests = append(c.Tests, f)
		} else {
			c.Sources = append(c.Sources, f)
		}
	}
	return c
}

// Collect implements Collector.
func (p *Pipeline) Collect(ctx context.Context, item candidate.Item, index repoindex.Index) (Evidence, []errors.Warning) {
	corpus, ok := index.(*Corpus)
	if !ok {
		corpus = p.NewCorpus(index)
	}

	r := &run{
		p:      p,
		ctx:    ctx,
		corpus: corpus,
		item:   item,
		warned: make(map[string]bool),
	}
	r.own, _ = item.Location()

	keys := DeriveKeys(item.Text(), KeyOptions{
		StopWords:        p.cfg.StopWords,
		MinKeywordLength: p.cfg.MinKeywordLength,
		MaxNameKeys:      p.cfg.MaxNameKeys,
	})

	var ev Evidence
	stages := []func(*Evidence){
		func(e *Evidence) { e.Merge(Evidence{FilesFound: r.findFiles(keys)}) },
		func(e *Evidence) { e.Merge(Evidence{UsageDetected: r.findUsage(e.FilesFound)}) },
		func(e *Evidence) { e.Merge(Evidence{TestsFound: r.findTests(keys, e.FilesFound)}) },
		func(e *Evidence) { e.Merge(Evidence{CodePatterns: r.findPatterns(keys, e.FilesFound)}) },
	}
	if item.Kind == candidate.KindTodo {
		stages = append(stages, func(e *Evidence) { e.Merge(r.todoSignals()) })
	}
	for _, stage := range stages {
		if ctx.Err() != nil {
			break
		}
		stage(&ev)
	}
	ev.Normalize()

	p.logger.Debug("Evidence collected",
		"candidate", item.ID(),
		"files", len(ev.FilesFound),
		"usage", len(ev.UsageDetected),
		"tests", len(ev.TestsFound),
		"patterns", len(ev.CodePatterns),
	)
	return ev, r.warnings
}

// run is the state of one Collect call.
type run struct {
	p        *Pipeline
	ctx      context.Context
	corpus   *Corpus
	item     candidate.Item
	own      string
	warnings []errors.Warning
	warned   map[string]bool
}

// read returns the bounded content of file, recording a warning if it cannot be read.
func (r *run) read(file string) (string, bool) {
	text, err := r.corpus.ReadText(file, r.p.cfg.MaxReadBytes)
	if err != nil {
		if !r.warned[file] {
			r.warned[file] = true
			r.warnings = append(r.warnings, errors.Warning{
				Code:        errors.CollectionFailed,
				CandidateID: r.item.ID(),
				Path:        file,
				Message:     "skipped unreadable file: " + err.Error(),
			})
			r.p.logger.Debug("Skipping unreadable file", "path", file, "error", err.Error())
		}
		return "", false
	}
	return text, true
}

func (p *Pipeline) isSource(file string) bool {
	return p.extensions[strings.ToLower(path.Ext(file))]
}

func (p *Pipeline) inBuildDir(file string) bool {
	segs := paths.Segments(file)
	for _, s := range segs[:max(len(segs)-1, 0)] {
		if p.buildDirs[strings.ToLower(s)] {
			return true
		}
	}
	return false
}

// IsTestFile reports whether file is a test by name marker or by living in a test directory.
func (p *Pipeline) IsTestFile(file string) bool {
	if p.inTestDir(file) {
		return true
	}
	_, marked := p.stripTestMarker(path.Base(file))
	return marked
}

// stripTestMarker removes the extension and any test marker from a base name.
func (p *Pipeline) stripTestMarker(base string) (string, bool) {
	stem := strings.TrimSuffix(base, path.Ext(base))
	lower := strings.ToLower(stem)
	for _, m := range p.cfg.TestMarkers {
		m = strings.ToLower(m)
		switch {
		case strings.HasSuffix(m, "_") && strings.HasPrefix(lower, m):
			return stem[len(m):], true
		case !strings.HasSuffix(m, "_") && strings.HasSuffix(lower, m):
			return stem[:len(stem)-len(m)], true
		}
	}
	return stem, false
}

func (p *Pipeline) inTestDir(file string) bool {
	segs := paths.Segments(file)
	for _, s := range segs[:max(len(segs)-1, 0)] {
		if p.testDirs[strings.ToLower(s)] {
			return true
		}
	}
	return false
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}

// truncate cuts s to at most n runes after trimming surrounding whitespace.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// compact lowercases s and strips everything but letters and digits.
func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"donecheck/internal/aggregate"
	"donecheck/internal/backends/git"
	"donecheck/internal/backends/scip"
	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/engine"
	"donecheck/internal/errors"
	"donecheck/internal/history"
	"donecheck/internal/paths"
	"donecheck/internal/planning"
	"donecheck/internal/registry"
	"donecheck/internal/repoindex"
	"donecheck/internal/report"
	"donecheck/internal/slogutil"
	"donecheck/internal/todos"
)

// checkOptions are the flags shared by `features` and `todos`.
type checkOptions struct {
	Kind         candidate.Kind
	Format       string
	GroupBy      string
	Output       string
	NoColor      bool
	Reasons      bool
	Breakdown    bool
	NoHistory    bool
	NoGit        bool
	NoSCIP       bool
	SyncRegistry bool
	Workers      int
	// MinProgress fails the run when progress is below it; negative disables the gate.
	MinProgress int
	// Now pins the reference time; zero means the current time.
	Now time.Time
}

// gateError reports a run whose progress is under --min-progress.
type gateError struct {
	progress, min int
}

func (e *gateError) Error() string {
	return fmt.Sprintf("progress %d%% is below the required %d%%", e.progress, e.min)
}

// session is a loaded repository: root, configuration and run logger.
type session struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	factory  *slogutil.LoggerFactory
}

func openSession(repoRoot string, console io.Writer) (*session, error) {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, errors.NewCheckError(errors.ConfigurationInvalid, "Failed to load configuration", err,
			errors.GetSuggestedFixes(errors.ConfigurationInvalid))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factory := slogutil.NewLoggerFactory(repoRoot, cfg, cliLevel(), verbosity > 0)
	return &session{
		repoRoot: repoRoot,
		cfg:      cfg,
		logger:   factory.RunLogger(console),
		factory:  factory,
	}, nil
}

func (s *session) Close() {
	if s.factory != nil {
		_ = s.factory.Close()
	}
}

// runCheck evaluates every candidate of opts.Kind and writes the report.
func runCheck(ctx context.Context, s *session, opts checkOptions, stdout io.Writer) (*report.Document, error) {
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	groupBy := opts.GroupBy
	if groupBy == "" {
		groupBy = "document"
	}
	keyFn, ok := aggregate.KeyFuncByName(groupBy)
	if !ok {
		return nil, fmt.Errorf("unsupported --group-by value: %s", groupBy)
	}
	if opts.Workers > 0 {
		s.cfg.Engine.Workers = opts.Workers
	}

	start := time.Now()
	index, err := repoindex.NewFSIndex(s.repoRoot, repoindex.OptionsFromConfig(s.cfg.Index, s.logger))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Repository indexed", "root", s.repoRoot, "files", index.Len(), "truncated", index.Truncated())

	items, warnings, err := collect(ctx, s, opts.Kind, index)
	if err != nil {
		return nil, err
	}

	var reg *registry.Registry
	if opts.Kind == candidate.KindFeature {
		reg, err = registry.LoadOptional(s.repoRoot, s.cfg.Registry.Path)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			items = reg.Apply(items, s.repoRoot)
		}
	}
	s.logger.Info("Candidates collected", "kind", opts.Kind, "count", len(items), "warnings", len(warnings))

	engOpts := engine.Options{
		ReferenceTime:    opts.Now,
		IncludeBreakdown: opts.Breakdown,
		Logger:           s.logger,
	}
	gitAdapter := openGit(s, opts)
	if gitAdapter != nil && opts.Kind == candidate.KindTodo {
		engOpts.Ages = gitAdapter
	}
	if refs := openSCIP(ctx, s, opts, index, gitAdapter); refs != nil {
		engOpts.References = refs
	}

	eng, err := engine.New(s.cfg, engOpts)
	if err != nil {
		return nil, err
	}
	batch, err := eng.Evaluate(ctx, items, index)
	if err != nil {
		return nil, err
	}
	batch.Warnings = append(warnings, batch.Warnings...)

	agg := aggregate.Aggregate(batch.Results, keyFn, aggregate.OptionsFromConfig(s.cfg))
	doc := report.New(opts.Kind, batch, agg, report.Meta{RepoRoot: s.repoRoot, GroupBy: groupBy})

	if s.cfg.History.Enabled && !opts.NoHistory {
		recordHistory(ctx, s, doc)
	}

	if reg != nil && opts.SyncRegistry {
		changed := reg.Sync(doc.RunID, doc.Results, doc.GeneratedAt)
		if err := reg.Save(); err != nil {
			return nil, err
		}
		s.logger.Info("Registry synced", "path", reg.Path(), "changed", changed)
	}

	if err := writeReport(doc, format, opts, stdout); err != nil {
		return nil, err
	}
	s.logger.Info("Check complete", "runId", doc.RunID, "results", len(doc.Results),
		"progress", doc.Aggregate.Summary.ProgressPercent, "duration", time.Since(start).String())

	if opts.MinProgress >= 0 && doc.Aggregate.Summary.ProgressPercent < opts.MinProgress {
		return doc, &gateError{progress: doc.Aggregate.Summary.ProgressPercent, min: opts.MinProgress}
	}
	return doc, nil
}

func collect(ctx context.Context, s *session, kind candidate.Kind, index repoindex.Index) ([]candidate.Item, []errors.Warning, error) {
	switch kind {
	case candidate.KindTodo:
		return todos.New(todos.OptionsFromConfig(s.cfg, s.logger)).Extract(ctx, index)
	case candidate.KindFeature:
		return planning.New(planning.OptionsFromConfig(s.cfg, s.logger)).Extract(ctx, index)
	}
	return nil, nil, fmt.Errorf("unknown candidate kind: %s", kind)
}

// openGit returns nil when git ages are disabled or unavailable.
func openGit(s *session, opts checkOptions) *git.Adapter {
	if !s.cfg.Collectors.Git.Enabled || opts.NoGit {
		return nil
	}
	adapter, err := git.NewAdapter(s.repoRoot, s.cfg.Collectors.Git, s.logger)
	if err != nil {
		s.logger.Info("Git unavailable, TODO ages disabled", "error", err)
		return nil
	}
	return adapter
}

// openSCIP returns nil when no usable SCIP index exists.
func openSCIP(ctx context.Context, s *session, opts checkOptions, index repoindex.Index, gitAdapter *git.Adapter) *scip.Source {
	if !s.cfg.Collectors.Scip.Enabled || opts.NoSCIP {
		return nil
	}
	indexPath := scip.IndexPath(s.repoRoot, s.cfg.Collectors.Scip.IndexPath)
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Debug("No SCIP index, using textual usage search", "path", indexPath)
		return nil
	}
	idx, err := scip.LoadIndex(indexPath)
	if err != nil {
		s.logger.Warn("Failed to load SCIP index", "path", indexPath, "error", err)
		return nil
	}
	if gitAdapter != nil {
		if head, err := gitAdapter.HeadCommit(ctx); err == nil && idx.IsStale(head) {
			s.logger.Warn("SCIP index is stale, usage evidence may be outdated",
				"indexedCommit", idx.IndexedCommit, "head", head)
		}
	}
	s.logger.Info("SCIP index loaded", "tool", idx.ToolName, "documents", len(idx.Documents))
	return scip.NewSource(idx, index)
}

// recordHistory attaches the trend and stores the run. History problems never fail a check.
func recordHistory(ctx context.Context, s *session, doc *report.Document) {
	store, err := history.Open(paths.HistoryDBPath(s.repoRoot), s.logger)
	if err != nil {
		s.logger.Warn("Run history unavailable", "error", err)
		return
	}
	defer store.Close()

	prev, err := store.Previous(ctx, doc.Kind, doc.RunID)
	if err != nil && !stderrors.Is(err, history.ErrNotFound) {
		s.logger.Warn("Failed to load previous run", "error", err)
	}
	doc.Trend = history.Compare(prev, doc)

	if err := store.Save(ctx, doc); err != nil {
		s.logger.Warn("Failed to save run", "error", err)
		return
	}
	if pruned, err := store.Prune(ctx, doc.Kind, s.cfg.History.MaxRuns); err != nil {
		s.logger.Warn("Failed to prune run history", "error", err)
	} else if pruned > 0 {
		s.logger.Debug("Run history pruned", "removed", pruned)
	}
}

// createOutput opens the --output file.
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func writeReport(doc *report.Document, format report.Format, opts checkOptions, stdout io.Writer) (err error) {
	renderer, err := report.NewRenderer(format, report.Options{
		Verbose: opts.Reasons,
		NoColor: opts.NoColor || opts.Output != "",
	})
	if err != nil {
		return err
	}
	if opts.Output == "" {
		return renderer.Render(stdout, doc)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return err
	}
	f, err := createOutput(opts.Output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write %s: %w", opts.Output, cerr)
		}
	}()
	return renderer.Render(f, doc)
}

// Package engine evaluates candidates end to end: collect evidence, score it,
// classify the result. Candidates are independent, so a batch fans out over a
// bounded worker pool while keeping results in input order.
package engine

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"donecheck/internal/candidate"
	"donecheck/internal/classify"
	"donecheck/internal/config"
	"donecheck/internal/errors"
	"donecheck/internal/evidence"
	"donecheck/internal/repoindex"
	"donecheck/internal/scoring"
)

// ScoredResult is the outcome for one candidate.
type ScoredResult struct {
	Candidate      candidate.Item     `json:"candidate"`
	Evidence       evidence.Evidence  `json:"evidence"`
	Confidence     int                `json:"confidence"`
	Status         classify.Status    `json:"status"`
	Band           classify.Band      `json:"band"`
	Recommendation string             `json:"recommendation"`
	Reasons        []string           `json:"reasons"`
	Breakdown      *scoring.Breakdown `json:"breakdown,omitempty"`
}

// BatchResult is the outcome of one Evaluate call.
type BatchResult struct {
	RunID         string           `json:"runId"`
	ReferenceTime time.Time        `json:"referenceTime"`
	Results       []ScoredResult   `json:"results"`
	Warnings      []errors.Warning `json:"warnings,omitempty"`
	Skipped       int              `json:"skipped,omitempty"`
}

// Options wires optional collaborators into the engine.
type Options struct {
	Ages       evidence.AgeSource
	References evidence.ReferenceSource
	// ReferenceTime fixes "now" for age signals; zero means the construction time.
	ReferenceTime time.Time
	// IncludeBreakdown attaches per-category points to each result.
	IncludeBreakdown bool
	Logger           *slog.Logger
}

// Engine is safe for concurrent use once constructed.
type Engine struct {
	cfg        *config.Config
	pipeline   *evidence.Pipeline
	scorer     *scoring.Scorer
	classifier *classify.Classifier
	breakdown  bool
	logger     *slog.Logger
}

// New validates cfg and builds an engine. Configuration problems are
// reported here, before any candidate is looked at.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, errors.Configuration("config", "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	classifier := classify.New(cfg.Classifier)
	pipeline := evidence.New(evidence.Options{
		Config:        cfg.Collectors,
		TaskTypes:     classifier.TaskTypes(),
		Ages:          opts.Ages,
		References:    opts.References,
		ReferenceTime: opts.ReferenceTime,
		Logger:        logger,
	})

	return &Engine{
		cfg:        cfg,
		pipeline:   pipeline,
		scorer:     scoring.New(cfg.Scoring),
		classifier: classifier,
		breakdown:  opts.IncludeBreakdown,
		logger:     logger,
	}, nil
}

// Classifier returns the classifier the engine was built with.
func (e *Engine) Classifier() *classify.Classifier {
	return e.classifier
}

// ReferenceTime returns the time age signals are measured against.
func (e *Engine) ReferenceTime() time.Time {
	return e.pipeline.ReferenceTime()
}

// Evaluate scores every valid candidate. Invalid candidates are skipped with
// a warning; a candidate that exceeds the configured timeout yields an
// unknown result so that valid candidates and results stay 1:1.
// Cancelling ctx aborts the batch and returns ctx.Err().
func (e *Engine) Evaluate(ctx context.Context, candidates []candidate.Item, index repoindex.Index) (*BatchResult, error) {
	start := time.Now()
	batch := &BatchResult{
		RunID:         uuid.New().String(),
		ReferenceTime: e.pipeline.ReferenceTime(),
	}

	var valid []candidate.Item
	var warnings []errors.Warning
	for _, item := range candidates {
		if err := item.Validate(); err != nil {
			file, _ := item.Location()
			warnings = append(warnings, errors.Warning{
				Code:        errors.InvalidCandidate,
				CandidateID: item.ID(),
				Path:        file,
				Message:     messageOf(err),
			})
			batch.Skipped++
			e.logger.Warn("Skipping invalid candidate", "candidate", item.ID(), "error", err.Error())
			continue
		}
		valid = append(valid, item)
	}

	corpus := e.pipeline.NewCorpus(index)
	results := make([]ScoredResult, len(valid))
	perItem := make([][]errors.Warning, len(valid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Engine.Workers)
	for i, item := range valid {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], perItem[i] = e.evaluateOne(gctx, item, corpus)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, ws := range perItem {
		warnings = append(warnings, ws...)
	}
	batch.Results = results
	batch.Warnings = dedupeWarnings(warnings)

	e.logger.Info("Evaluation complete",
		"runId", batch.RunID,
		"candidates", len(candidates),
		"results", len(results),
		"skipped", batch.Skipped,
		"warnings", len(batch.Warnings),
		"duration", time.Since(start).String(),
	)
	return batch, nil
}

// Assess scores and classifies already-collected evidence.
func (e *Engine) Assess(item candidate.Item, ev evidence.Evidence) ScoredResult {
	b := e.scorer.Breakdown(ev, item.Kind)
	confidence := b.Total()
	reasons := scoring.Reasons(ev, b)
	d := e.classifier.Classify(item, confidence, ev)

	r := ScoredResult{
		Candidate:      item,
		Evidence:       ev,
		Confidence:     confidence,
		Status:         d.Status,
		Band:           d.Band,
		Recommendation: d.Recommendation,
		Reasons:        append(reasons, d.Reasons...),
	}
	if e.breakdown {
		r.Breakdown = &b
	}
	return r
}

func (e *Engine) evaluateOne(ctx context.Context, item candidate.Item, corpus *evidence.Corpus) (ScoredResult, []errors.Warning) {
	timeout, ok := e.cfg.Engine.Timeout()
	if !ok {
		ev, warnings := e.pipeline.Collect(ctx, item, corpus)
		return e.Assess(item, ev), warnings
	}

	cctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
	defer cancel()

	type collected struct {
		ev       evidence.Evidence
		warnings []errors.Warning
	}
	done := make(chan collected, 1)
	go func() {
		ev, warnings := e.pipeline.Collect(cctx, item, corpus)
		done <- collected{ev, warnings}
	}()

	select {
	case c := <-done:
		if cctx.Err() == nil {
			return e.Assess(item, c.ev), c.warnings
		}
	case <-cctx.Done():
	}

	// The parent's cancellation is reported by Evaluate, not as a timeout.
	if ctx.Err() != nil {
		return ScoredResult{Candidate: item}, nil
	}
	return e.timedOut(item, timeout)
}

func (e *Engine) timedOut(item candidate.Item, timeoutMs int) (ScoredResult, []errors.Warning) {
	d := e.classifier.Unknown(item)
	file, _ := item.Location()
	e.logger.Warn("Candidate timed out", "candidate", item.ID(), "timeoutMs", timeoutMs)
	return ScoredResult{
			Candidate:      item,
			Confidence:     0,
			Status:         d.Status,
			Band:           d.Band,
			Recommendation: d.Recommendation,
			Reasons:        []string{"Evaluation did not finish in time"},
		}, []errors.Warning{{
			Code:        errors.CandidateTimeout,
			CandidateID: item.ID(),
			Path:        file,
			Message:     "evaluation exceeded the candidate timeout",
		}}
}

func messageOf(err error) string {
	var ce *errors.CheckError
	if stderrors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

// dedupeWarnings keeps the first warning per code, path and message.
func dedupeWarnings(ws []errors.Warning) []errors.Warning {
	type key struct {
		code    errors.ErrorCode
		path    string
		message string
	}
	seen := make(map[key]bool, len(ws))
	out := make([]errors.Warning, 0, len(ws))
	for _, w := range ws {
		k := key{w.Code, w.Path, w.Message}
		if w.Code == errors.InvalidCandidate || w.Code == errors.CandidateTimeout {
			k.path = w.CandidateID
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

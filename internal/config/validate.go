package config

import (
	"fmt"
	"strings"

	"donecheck/internal/errors"
)

// Validate checks the configuration and returns a CONFIGURATION_INVALID
// error naming the first offending field.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return errors.Configuration("version", fmt.Sprintf("unsupported version %d (expected %d)", c.Version, CurrentVersion))
	}

	checks := []func() error{
		c.validateIndex,
		c.validateCollectors,
		c.validateFeatureWeights,
		c.validateTodoWeights,
		c.validateClassifier,
		c.validateRuntime,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateIndex() error {
	if c.Index.MaxFileSizeBytes < 0 {
		return errors.Configuration("index.maxFileSizeBytes", "must not be negative")
	}
	if c.Index.MaxFiles < 0 {
		return errors.Configuration("index.maxFiles", "must not be negative")
	}
	return nil
}

func (c *Config) validateCollectors() error {
	col := c.Collectors
	if len(col.SourceExtensions) == 0 {
		return errors.Configuration("collectors.sourceExtensions", "at least one extension is required")
	}
	for _, ext := range col.SourceExtensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.Configuration("collectors.sourceExtensions", fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}
	if col.MaxStatementLength <= 0 {
		return errors.Configuration("collectors.maxStatementLength", "must be positive")
	}
	if col.MaxPatternMatches <= 0 {
		return errors.Configuration("collectors.maxPatternMatches", "must be positive")
	}
	if col.MinKeywordLength < 1 {
		return errors.Configuration("collectors.minKeywordLength", "must be at least 1")
	}
	if col.MaxNameKeys < 1 {
		return errors.Configuration("collectors.maxNameKeys", "must be at least 1")
	}
	if col.MaxReadBytes <= 0 {
		return errors.Configuration("collectors.maxReadBytes", "must be positive")
	}
	return nil
}

func (c *Config) validateFeatureWeights() error {
	w := c.Scoring.Feature
	for field, v := range map[string]int{
		"scoring.feature.files":                 w.Files,
		"scoring.feature.usage":                 w.Usage,
		"scoring.feature.tests":                 w.Tests,
		"scoring.feature.patterns":              w.Patterns,
		"scoring.feature.patternPointsPerMatch": w.PatternPointsPerMatch,
	} {
		if v < 0 {
			return errors.Configuration(field, "weights must not be negative")
		}
	}
	if w.UsageSaturation < 1 {
		return errors.Configuration("scoring.feature.usageSaturation", "must be at least 1")
	}
	if w.PatternDiscountPercent < 0 || w.PatternDiscountPercent > 100 {
		return errors.Configuration("scoring.feature.patternDiscountPercent", "must be between 0 and 100")
	}
	// Finding a file must never cost more than the pattern discount takes away.
	if w.Files < w.Patterns*w.PatternDiscountPercent/100 {
		return errors.Configuration("scoring.feature.files",
			fmt.Sprintf("must be at least %d so that adding file evidence never lowers confidence", w.Patterns*w.PatternDiscountPercent/100))
	}
	return nil
}

func (c *Config) validateTodoWeights() error {
	w := c.Scoring.Todo
	for field, v := range map[string]int{
		"scoring.todo.archival":              w.Archival,
		"scoring.todo.stale":                 w.Stale,
		"scoring.todo.aging":                 w.Aging,
		"scoring.todo.resolvedMarker":        w.ResolvedMarker,
		"scoring.todo.files":                 w.Files,
		"scoring.todo.usage":                 w.Usage,
		"scoring.todo.tests":                 w.Tests,
		"scoring.todo.patterns":              w.Patterns,
		"scoring.todo.patternPointsPerMatch": w.PatternPointsPerMatch,
	} {
		if v < 0 {
			return errors.Configuration(field, "weights must not be negative")
		}
	}
	if w.PatternDiscountPercent < 0 || w.PatternDiscountPercent > 100 {
		return errors.Configuration("scoring.todo.patternDiscountPercent", "must be between 0 and 100")
	}
	if w.Files < w.Patterns*w.PatternDiscountPercent/100 {
		return errors.Configuration("scoring.todo.files",
			fmt.Sprintf("must be at least %d so that adding file evidence never lowers confidence", w.Patterns*w.PatternDiscountPercent/100))
	}
	if w.Stale < w.Aging {
		return errors.Configuration("scoring.todo.stale", "must not be lower than scoring.todo.aging")
	}
	if w.AgingAfterDays <= 0 {
		return errors.Configuration("scoring.todo.agingAfterDays", "must be positive")
	}
	if w.StaleAfterDays <= w.AgingAfterDays {
		return errors.Configuration("scoring.todo.staleAfterDays", "must be greater than scoring.todo.agingAfterDays")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	cl := c.Classifier
	if cl.ImplementedFloor < 0 || cl.ImplementedFloor > 100 {
		return errors.Configuration("classifier.implementedFloor", "must be between 0 and 100")
	}
	if cl.LowConfidenceCeiling > cl.HighConfidenceFloor {
		return errors.Configuration("classifier.lowConfidenceCeiling", "must not exceed classifier.highConfidenceFloor")
	}
	if cl.HighConfidenceFloor > 100 {
		return errors.Configuration("classifier.highConfidenceFloor", "must not exceed 100")
	}

	b := cl.Bands
	if b.Low < 0 || b.VeryHigh > 100 {
		return errors.Configuration("classifier.bands", "thresholds must lie within 0..100")
	}
	if !(b.Low < b.Medium && b.Medium < b.High && b.High < b.VeryHigh) {
		return errors.Configuration("classifier.bands", "thresholds must be strictly increasing (low < medium < high < veryHigh)")
	}

	seen := make(map[string]bool, len(cl.TaskTypes))
	for i, tt := range cl.TaskTypes {
		field := fmt.Sprintf("classifier.taskTypes[%d]", i)
		if strings.TrimSpace(tt.Name) == "" {
			return errors.Configuration(field+".name", "must not be empty")
		}
		if seen[tt.Name] {
			return errors.Configuration(field+".name", fmt.Sprintf("duplicate task type %q", tt.Name))
		}
		seen[tt.Name] = true
		if len(tt.Keywords) == 0 {
			return errors.Configuration(field+".keywords", "at least one keyword is required")
		}
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if c.Engine.Workers < 1 {
		return errors.Configuration("engine.workers", "must be at least 1")
	}
	if c.Engine.CandidateTimeoutMs < 0 {
		return errors.Configuration("engine.candidateTimeoutMs", "must not be negative")
	}
	if c.Aggregate.TopN < 0 {
		return errors.Configuration("aggregate.topN", "must not be negative")
	}
	if c.History.MaxRuns < 0 {
		return errors.Configuration("history.maxRuns", "must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.Configuration("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if c.Logging.MaxBackups < 0 {
		return errors.Configuration("logging.maxBackups", "must not be negative")
	}
	return nil
}

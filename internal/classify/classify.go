// Package classify maps a confidence and its evidence to a status, a band and
// a recommendation a person can act on.
package classify

import (
	"fmt"
	"strings"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/evidence"
	"donecheck/internal/tasktype"
)

// Status is the classification of a scored candidate.
// Features use implemented/partial/missing; TODOs use their confidence band.
type Status string

const (
	StatusImplemented Status = "implemented"
	StatusPartial     Status = "partial"
	StatusMissing     Status = "missing"
	// StatusUnknown marks a candidate whose evaluation did not finish.
	StatusUnknown Status = "unknown"

	StatusVeryHigh Status = "veryHigh"
	StatusHigh     Status = "high"
	StatusMedium   Status = "medium"
	StatusLow      Status = "low"
	StatusActive   Status = "active"
)

// TodoStatuses lists the TODO bands from most to least likely complete.
var TodoStatuses = []Status{StatusVeryHigh, StatusHigh, StatusMedium, StatusLow, StatusActive}

// FeatureStatuses lists the feature statuses in report order.
var FeatureStatuses = []Status{StatusImplemented, StatusPartial, StatusMissing, StatusUnknown}

// Band is a named confidence range. Feature results carry an implementation
// band (low/moderate/high); TODO results carry the band that is also their status.
type Band string

const (
	BandVeryHigh Band = "veryHigh"
	BandHigh     Band = "high"
	BandModerate Band = "moderate"
	BandMedium   Band = "medium"
	BandLow      Band = "low"
	BandActive   Band = "active"
)

var todoActions = map[Status]string{
	StatusVeryHigh: "Safe to close",
	StatusHigh:     "Needs review",
	StatusMedium:   "Possibly done, verify",
	StatusLow:      "Probably still open, revisit",
	StatusActive:   "Keep as-is",
}

// Action returns the fixed action string of a TODO band.
func Action(s Status) string {
	return todoActions[s]
}

// Decision is the classifier output.
type Decision struct {
	Status         Status
	Band           Band
	Recommendation string
	// Reasons are notes the classifier adds to the scorer's reasons.
	Reasons []string
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	cfg       config.ClassifierConfig
	taskTypes *tasktype.Matcher
}

// New creates a classifier. The config must already be validated.
func New(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{
		cfg:       cfg,
		taskTypes: tasktype.NewMatcher(cfg.TaskTypes),
	}
}

// TaskTypes exposes the matcher built from the classifier config.
func (c *Classifier) TaskTypes() *tasktype.Matcher {
	return c.taskTypes
}

// Classify decides status, band and recommendation for one candidate.
func (c *Classifier) Classify(item candidate.Item, confidence int, ev evidence.Evidence) Decision {
	if item.Kind == candidate.KindTodo {
		status := c.TodoStatus(confidence)
		return Decision{
			Status:         status,
			Band:           Band(status),
			Recommendation: todoActions[status],
		}
	}
	return c.classifyFeature(item, confidence, ev)
}

// Unknown is the decision for a candidate whose evaluation timed out.
func (c *Classifier) Unknown(item candidate.Item) Decision {
	d := Decision{
		Status:         StatusUnknown,
		Recommendation: "Evaluation timed out; re-run with a larger engine.candidateTimeoutMs.",
	}
	if item.Kind == candidate.KindTodo {
		d.Band = BandActive
	} else {
		d.Band = BandLow
	}
	return d
}

// TodoStatus maps a confidence to its TODO band. Thresholds are inclusive lower bounds.
func (c *Classifier) TodoStatus(confidence int) Status {
	b := c.cfg.Bands
	switch {
	case confidence >= b.VeryHigh:
		return StatusVeryHigh
	case confidence >= b.High:
		return StatusHigh
	case confidence >= b.Medium:
		return StatusMedium
	case confidence >= b.Low:
		return StatusLow
	default:
		return StatusActive
	}
}

// ImplementationBand maps a feature confidence to low, moderate or high.
func (c *Classifier) ImplementationBand(confidence int) Band {
	switch {
	case confidence >= c.cfg.HighConfidenceFloor:
		return BandHigh
	case confidence >= c.cfg.LowConfidenceCeiling:
		return BandModerate
	default:
		return BandLow
	}
}

// IsCleanup reports whether a TODO confidence reaches the veryHigh band.
func (c *Classifier) IsCleanup(confidence int) bool {
	return confidence >= c.cfg.Bands.VeryHigh
}

func (c *Classifier) classifyFeature(item candidate.Item, confidence int, ev evidence.Evidence) Decision {
	d := Decision{Band: c.ImplementationBand(confidence)}

	switch {
	case ev.Empty():
		d.Status = StatusMissing
		d.Recommendation, d.Reasons = c.missingRecommendation(item.Text())
	case confidence >= c.cfg.ImplementedFloor:
		d.Status = StatusImplemented
		d.Recommendation = c.implementedRecommendation(d.Band, ev)
	default:
		d.Status = StatusPartial
		d.Recommendation = partialRecommendation(ev)
	}

	if reason := c.claimReason(item, confidence, d); reason != "" {
		d.Reasons = append(d.Reasons, reason)
	}
	return d
}

func (c *Classifier) missingRecommendation(description string) (string, []string) {
	match, ok := c.taskTypes.Best(description)
	if !ok {
		return "No implementation evidence found. Start the feature, or check whether it was built under a different name.", nil
	}

	var sb strings.Builder
	sb.WriteString("No implementation evidence found. ")
	sb.WriteString(match.Explanation)
	if len(match.CheckInstead) > 0 {
		sb.WriteString(" Check instead: ")
		sb.WriteString(strings.Join(match.CheckInstead, "; "))
		sb.WriteString(".")
	}
	reason := fmt.Sprintf("Looks like a %s task (matched %s)", match.Name, strings.Join(match.Keywords, ", "))
	return sb.String(), []string{reason}
}

func (c *Classifier) implementedRecommendation(band Band, ev evidence.Evidence) string {
	var gaps []string
	if len(ev.FilesFound) == 0 {
		gaps = append(gaps, "confirm a dedicated implementation exists")
	}
	if len(ev.TestsFound) == 0 {
		gaps = append(gaps, "add test coverage")
	}
	if len(ev.UsageDetected) == 0 {
		gaps = append(gaps, "verify it is wired in")
	}

	prefix := "Implemented"
	switch band {
	case BandLow:
		prefix = "Likely implemented (low confidence)"
	case BandModerate:
		prefix = "Likely implemented"
	}
	if len(gaps) == 0 {
		return prefix + "; no action needed."
	}
	return prefix + ": " + strings.Join(gaps, ", ") + "."
}

func partialRecommendation(ev evidence.Evidence) string {
	switch {
	case len(ev.FilesFound) == 0 && len(ev.CodePatterns) > 0 && len(ev.TestsFound) == 0 && len(ev.UsageDetected) == 0:
		return "Only keyword matches found. Locate the implementation or treat the feature as not started."
	case len(ev.TestsFound) > 0 && len(ev.FilesFound) == 0:
		return "Tests exist but no implementation file was found. Check whether the work is in progress."
	default:
		return "Partial evidence only. Confirm whether the work was started and finish it."
	}
}

// claimReason records disagreement between a human claim and the evidence.
// The claim never changes the score or status.
func (c *Classifier) claimReason(item candidate.Item, confidence int, d Decision) string {
	if item.Feature == nil || item.Feature.PriorClaim == "" {
		return ""
	}
	if item.Claimed() {
		if d.Status == StatusImplemented && d.Band == BandHigh {
			return ""
		}
		return fmt.Sprintf("Marked %q in the plan, but evidence only supports %d%% (%s)", item.Feature.PriorClaim, confidence, d.Status)
	}
	if d.Status == StatusImplemented && d.Band == BandHigh {
		return fmt.Sprintf("Marked %q in the plan, but evidence suggests it is implemented", item.Feature.PriorClaim)
	}
	return ""
}

// Package candidate defines the work items donecheck evaluates:
// TODO comments found in source and planned features found in planning documents.
package candidate

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"donecheck/internal/errors"
	"donecheck/internal/paths"
)

// Kind distinguishes the two candidate flavors.
type Kind string

const (
	KindTodo    Kind = "todo"
	KindFeature Kind = "feature"
)

// Priority is the declared urgency of a TODO.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TodoInfo describes a TODO-style comment.
type TodoInfo struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Priority Priority `json:"priority"`
}

// FeatureInfo describes a planned feature extracted from a planning document.
type FeatureInfo struct {
	Description string `json:"description"`
	Document    string `json:"document"`
	Line        int    `json:"line"`
	Section     string `json:"section,omitempty"`
	// PriorClaim is a human assertion such as "implemented" from a registry
	// or a checked box. It is reported, never scored.
	PriorClaim string `json:"priorClaim,omitempty"`
}

// Item is a single candidate. Exactly one of Todo or Feature is set, matching Kind.
type Item struct {
	Kind    Kind         `json:"kind"`
	Todo    *TodoInfo    `json:"todo,omitempty"`
	Feature *FeatureInfo `json:"feature,omitempty"`
}

// NewTodo creates a TODO candidate.
func NewTodo(info TodoInfo) Item {
	info.File = paths.NormalizePath(info.File)
	return Item{Kind: KindTodo, Todo: &info}
}

// NewFeature creates a feature candidate.
func NewFeature(info FeatureInfo) Item {
	info.Document = paths.NormalizePath(info.Document)
	return Item{Kind: KindFeature, Feature: &info}
}

// ID returns the stable identity: todo:<file>:<line> or feature:<doc>:<line>.
func (it Item) ID() string {
	switch {
	case it.Kind == KindTodo && it.Todo != nil:
		return "todo:" + it.Todo.File + ":" + strconv.Itoa(it.Todo.Line)
	case it.Kind == KindFeature && it.Feature != nil:
		return "feature:" + it.Feature.Document + ":" + strconv.Itoa(it.Feature.Line)
	default:
		return string(it.Kind) + ":?"
	}
}

// Text returns the free text the collectors analyze.
func (it Item) Text() string {
	switch {
	case it.Todo != nil:
		return it.Todo.Text
	case it.Feature != nil:
		return it.Feature.Description
	}
	return ""
}

// Location returns the file or document path and line.
func (it Item) Location() (string, int) {
	switch {
	case it.Todo != nil:
		return it.Todo.File, it.Todo.Line
	case it.Feature != nil:
		return it.Feature.Document, it.Feature.Line
	}
	return "", 0
}

// Fingerprint is a BLAKE2b-256 digest of the item's content without its line.
// A TODO keeps its fingerprint while it moves within its file; a feature keeps
// it across planning documents. ID is the opposite: stable while text is edited.
func (it Item) Fingerprint() string {
	file, _ := it.Location()
	if it.Kind == KindFeature {
		file = ""
	}
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\x00%s\x00%s", it.Kind, file, normalizeText(it.Text()))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Validate checks the identity fields and returns an INVALID_CANDIDATE error.
func (it Item) Validate() error {
	var problem string
	switch it.Kind {
	case KindTodo:
		switch {
		case it.Todo == nil:
			problem = "todo payload is missing"
		case strings.TrimSpace(it.Todo.File) == "":
			problem = "todo file is empty"
		case it.Todo.Line < 1:
			problem = "todo line must be at least 1"
		case strings.TrimSpace(it.Todo.Text) == "":
			problem = "todo text is empty"
		}
	case KindFeature:
		switch {
		case it.Feature == nil:
			problem = "feature payload is missing"
		case strings.TrimSpace(it.Feature.Document) == "":
			problem = "feature document is empty"
		case it.Feature.Line < 1:
			problem = "feature line must be at least 1"
		case strings.TrimSpace(it.Feature.Description) == "":
			problem = "feature description is empty"
		}
	default:
		problem = fmt.Sprintf("unknown kind %q", it.Kind)
	}

	if problem == "" {
		return nil
	}
	return errors.NewCheckError(errors.InvalidCandidate, problem, nil, nil).
		WithDetails(map[string]interface{}{"candidateId": it.ID()})
}

// Claimed reports whether a feature's prior claim asserts completion.
func (it Item) Claimed() bool {
	if it.Feature == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(it.Feature.PriorClaim)) {
	case "implemented", "done", "complete", "completed", "shipped", "x":
		return true
	}
	return false
}

// PriorityFor maps a declared TODO type to its default priority.
func PriorityFor(todoType string) Priority {
	switch strings.ToUpper(todoType) {
	case "BUG", "FIXME":
		return PriorityHigh
	case "HACK", "XXX":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

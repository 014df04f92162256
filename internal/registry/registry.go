// Package registry reads and writes the feature registry: a human-maintained
// list of planned features and their claimed status, stored as JSON or TOML.
// Claims are attached to candidates as prior claims; they never change a score.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"donecheck/internal/candidate"
	"donecheck/internal/classify"
	"donecheck/internal/engine"
	"donecheck/internal/paths"
)

// CurrentVersion is the registry schema version.
const CurrentVersion = 1

// Registry is the root of a registry file.
type Registry struct {
	// Version is the schema version
	Version int `json:"version" toml:"version"`

	// Features lists the tracked features in file order
	Features []Entry `json:"features" toml:"features"`

	// path is where the registry was loaded from
	path string
}

// Entry is one tracked feature.
type Entry struct {
	// ID is an optional stable identifier chosen by the maintainer
	ID string `json:"id,omitempty" toml:"id,omitempty"`

	// Description is the feature text, matched against planning documents
	Description string `json:"description" toml:"description"`

	// Status is the claimed status (planned, in-progress, implemented, ...)
	Status string `json:"status" toml:"status"`

	// Document optionally pins the entry to one planning document
	Document string `json:"document,omitempty" toml:"document,omitempty"`

	// Notes is free text for humans
	Notes string `json:"notes,omitempty" toml:"notes,omitempty"`

	// Observed is written by Sync and records the last evaluation
	Observed *Observation `json:"observed,omitempty" toml:"observed,omitempty"`
}

// Observation is the last evaluated state of an entry.
type Observation struct {
	Status     string    `json:"status" toml:"status"`
	Confidence int       `json:"confidence" toml:"confidence"`
	RunID      string    `json:"runId" toml:"run_id"`
	CheckedAt  time.Time `json:"checkedAt" toml:"checked_at"`
}

// New creates an empty registry that will be saved at path.
func New(path string) *Registry {
	return &Registry{Version: CurrentVersion, Features: []Entry{}, path: path}
}

// Path returns the file the registry belongs to.
func (r *Registry) Path() string {
	return r.path
}

// Load reads a registry file; the extension picks the format.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	reg := &Registry{path: path}
	if isTOML(path) {
		if _, err := toml.Decode(string(data), reg); err != nil {
			return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, reg); err != nil {
			return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
		}
	}

	if reg.Version == 0 {
		reg.Version = CurrentVersion
	}
	if reg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported registry version %d (expected %d)", reg.Version, CurrentVersion)
	}
	for i, e := range reg.Features {
		if strings.TrimSpace(e.Description) == "" {
			return nil, fmt.Errorf("registry %s: feature %d has no description", path, i+1)
		}
	}
	return reg, nil
}

// LoadOptional loads the registry at repoRoot/rel, returning nil when the file does not exist.
func LoadOptional(repoRoot, rel string) (*Registry, error) {
	if rel == "" {
		return nil, nil
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, filepath.FromSlash(rel))
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return Load(path)
}

// Save writes the registry back in its own format.
func (r *Registry) Save() error {
	if r.path == "" {
		return fmt.Errorf("registry has no path")
	}
	var buf bytes.Buffer
	if isTOML(r.path) {
		if err := toml.NewEncoder(&buf).Encode(r); err != nil {
			return fmt.Errorf("failed to encode registry: %w", err)
		}
	} else {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode registry: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// Apply attaches registry claims to matching feature candidates and returns
// the merged list. Entries that match no candidate become candidates of their
// own, located in the registry file at their position.
func (r *Registry) Apply(items []candidate.Item, repoRoot string) []candidate.Item {
	out := make([]candidate.Item, 0, len(items)+len(r.Features))
	matched := make([]bool, len(r.Features))

	for _, item := range items {
		if item.Feature != nil {
			if i := r.find(item); i >= 0 {
				matched[i] = true
				info := *item.Feature
				if info.PriorClaim == "" || r.Features[i].Status != "" {
					info.PriorClaim = r.Features[i].Status
				}
				item = candidate.NewFeature(info)
			}
		}
		out = append(out, item)
	}

	doc := r.relPath(repoRoot)
	for i, e := range r.Features {
		if matched[i] {
			continue
		}
		out = append(out, candidate.NewFeature(candidate.FeatureInfo{
			Description: e.Description,
			Document:    doc,
			Line:        i + 1,
			PriorClaim:  e.Status,
		}))
	}
	return out
}

// Sync records the latest evaluation of every entry that has a result.
// It reports how many entries changed.
func (r *Registry) Sync(runID string, results []engine.ScoredResult, at time.Time) int {
	changed := 0
	for _, res := range results {
		if res.Candidate.Feature == nil || res.Status == classify.StatusUnknown {
			continue
		}
		i := r.find(res.Candidate)
		if i < 0 {
			continue
		}
		obs := &Observation{
			Status:     string(res.Status),
			Confidence: res.Confidence,
			RunID:      runID,
			CheckedAt:  at.UTC(),
		}
		prev := r.Features[i].Observed
		if prev == nil || prev.Status != obs.Status || prev.Confidence != obs.Confidence {
			changed++
		}
		r.Features[i].Observed = obs
	}
	return changed
}

// find returns the entry matching a feature candidate, or -1.
func (r *Registry) find(item candidate.Item) int {
	if item.Feature == nil {
		return -1
	}
	want := normalize(item.Feature.Description)
	for i, e := range r.Features {
		if e.ID != "" && e.ID == item.ID() {
			return i
		}
		if normalize(e.Description) != want {
			continue
		}
		if e.Document != "" && paths.NormalizePath(e.Document) != item.Feature.Document {
			continue
		}
		return i
	}
	return -1
}

func (r *Registry) relPath(repoRoot string) string {
	if repoRoot != "" {
		if rel, err := filepath.Rel(repoRoot, r.path); err == nil && !strings.HasPrefix(rel, "..") {
			return paths.NormalizePath(rel)
		}
	}
	return paths.NormalizePath(r.path)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimRight(s, ". ")), " "))
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

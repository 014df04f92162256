// Package scip answers "who references this file" from a SCIP index, giving
// the usage collector compiler-grade references where an indexer has run.
package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"donecheck/internal/errors"
	"donecheck/internal/paths"
)

// Index is a loaded SCIP index reduced to what reference lookups need.
type Index struct {
	// Documents are all indexed documents
	Documents []*Document

	// ToolName is the indexer that produced the index
	ToolName string

	// LoadedAt is when the index was loaded
	LoadedAt time.Time

	// IndexedCommit is the git commit the index was built from, if the indexer recorded it
	IndexedCommit string

	byPath map[string]*Document
}

// LoadIndex loads a SCIP index from path.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewCheckError(
				errors.BackendUnavailable,
				fmt.Sprintf("SCIP index not found at %s", path),
				err,
				[]errors.FixAction{
					{
						Type:        errors.EditConfig,
						Field:       "collectors.scip.indexPath",
						Description: "Point donecheck at an existing index.scip, or disable SCIP usage detection",
					},
				},
			)
		}
		return nil, errors.NewCheckError(
			errors.BackendUnavailable,
			fmt.Sprintf("Failed to read SCIP index from %s", path),
			err,
			nil,
		)
	}
	return ParseIndex(data)
}

// ParseIndex decodes a protobuf-encoded SCIP index.
func ParseIndex(data []byte) (*Index, error) {
	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewCheckError(
			errors.BackendUnavailable,
			"Failed to parse SCIP index",
			err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "scip print index.scip",
					Safe:        true,
					Description: "Verify SCIP index is valid",
				},
			},
		)
	}

	idx := &Index{
		Documents: make([]*Document, 0, len(raw.Documents)),
		LoadedAt:  time.Now(),
		byPath:    make(map[string]*Document, len(raw.Documents)),
	}
	if meta := raw.Metadata; meta != nil && meta.ToolInfo != nil {
		idx.ToolName = meta.ToolInfo.Name
		idx.IndexedCommit = extractCommitFromToolInfo(meta.ToolInfo.Version, meta.ToolInfo.Arguments)
	}
	for _, d := range raw.Documents {
		doc := convertDocument(d)
		idx.Documents = append(idx.Documents, doc)
		idx.byPath[doc.RelativePath] = doc
	}
	return idx, nil
}

// Document returns the document at a repo-relative path, or nil.
func (i *Index) Document(relativePath string) *Document {
	return i.byPath[paths.NormalizePath(relativePath)]
}

// IsStale reports whether the index was built from a commit other than head.
// An index that does not record its commit is never considered stale.
func (i *Index) IsStale(head string) bool {
	if i.IndexedCommit == "" || head == "" {
		return false
	}
	return !strings.HasPrefix(head, i.IndexedCommit) && !strings.HasPrefix(i.IndexedCommit, head)
}

func convertDocument(doc *scippb.Document) *Document {
	out := &Document{
		RelativePath: paths.NormalizePath(doc.RelativePath),
		Language:     doc.Language,
		Occurrences:  make([]Occurrence, 0, len(doc.Occurrences)),
	}
	for _, occ := range doc.Occurrences {
		if len(occ.Range) < 3 || occ.Symbol == "" {
			continue
		}
		out.Occurrences = append(out.Occurrences, Occurrence{
			Line:   int(occ.Range[0]) + 1,
			Symbol: occ.Symbol,
			Roles:  occ.SymbolRoles,
		})
	}
	return out
}

// extractCommitFromToolInfo attempts to extract the git commit from tool info.
// Common patterns: --commit=<hash>, --git-commit=<hash>, --module-version=<hash> (scip-go), -c <hash>.
func extractCommitFromToolInfo(version string, args []string) string {
	for i, arg := range args {
		for _, prefix := range []string{"--commit=", "--git-commit=", "--module-version="} {
			if v, ok := strings.CutPrefix(arg, prefix); ok && v != "" {
				return v
			}
		}
		if arg == "-c" && i+1 < len(args) {
			return args[i+1]
		}
	}

	// scip-go puts the commit in the version field
	if looksLikeCommitHash(version) {
		return version
	}
	return ""
}

// looksLikeCommitHash checks if a string looks like a git commit hash
func looksLikeCommitHash(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// IndexPath resolves the configured index path against the repo root.
func IndexPath(repoRoot, configPath string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	return filepath.Join(repoRoot, configPath)
}

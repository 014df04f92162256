package scip

import (
	"context"
	"sort"
	"strings"
	"sync"

	"donecheck/internal/evidence"
	"donecheck/internal/paths"
	"donecheck/internal/repoindex"
)

// maxStatementBytes bounds the source read used to quote a reference line.
const maxStatementBytes = 256 * 1024

// Source implements evidence.ReferenceSource over a SCIP index.
// Statements are quoted from the repository index when it can read the file.
type Source struct {
	index *Index
	repo  repoindex.Index

	once    sync.Once
	symbols map[string][]siteRef // symbol -> non-definition occurrences
}

type siteRef struct {
	file string
	line int
}

// NewSource creates a reference source. repo may be nil, leaving statements empty.
func NewSource(index *Index, repo repoindex.Index) *Source {
	return &Source{index: index, repo: repo}
}

// References returns every place outside file that refers to a symbol defined in file.
// Document-local symbols are ignored. Results are sorted by file and line.
func (s *Source) References(ctx context.Context, file string) ([]evidence.UsageSite, error) {
	s.once.Do(s.build)

	doc := s.index.Document(file)
	if doc == nil {
		return nil, nil
	}
	file = doc.RelativePath

	seen := make(map[siteRef]bool)
	var sites []evidence.UsageSite
	for _, occ := range doc.Occurrences {
		if !occ.IsDefinition() || isLocal(occ.Symbol) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, ref := range s.symbols[occ.Symbol] {
			if ref.file == file || seen[ref] {
				continue
			}
			seen[ref] = true
			sites = append(sites, evidence.UsageSite{
				File:      ref.file,
				Line:      ref.line,
				Statement: s.statement(ref),
			})
		}
	}

	sort.Slice(sites, func(i, j int) bool {
		if sites[i].File != sites[j].File {
			return sites[i].File < sites[j].File
		}
		return sites[i].Line < sites[j].Line
	})
	return sites, nil
}

// build inverts the index once: symbol to referencing occurrences.
func (s *Source) build() {
	s.symbols = make(map[string][]siteRef)
	for _, doc := range s.index.Documents {
		for _, occ := range doc.Occurrences {
			if occ.IsDefinition() || isLocal(occ.Symbol) {
				continue
			}
			s.symbols[occ.Symbol] = append(s.symbols[occ.Symbol], siteRef{file: doc.RelativePath, line: occ.Line})
		}
	}
}

func (s *Source) statement(ref siteRef) string {
	if s.repo == nil {
		return ""
	}
	text, err := s.repo.ReadText(paths.NormalizePath(ref.file), maxStatementBytes)
	if err != nil {
		return ""
	}
	lines := strings.Split(text, "\n")
	if ref.line < 1 || ref.line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[ref.line-1])
}

// isLocal reports whether a SCIP symbol is scoped to its document.
func isLocal(symbol string) bool {
	return strings.HasPrefix(symbol, "local ")
}

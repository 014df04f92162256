// Package repoindex provides the read-only repository view the evidence
// collectors consume: file existence, listing and bounded content reads.
package repoindex

import (
	"bytes"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNotFound is returned by ReadText for paths absent from the index.
	ErrNotFound = errors.New("file not indexed")
	// ErrBinary is returned by ReadText for files that look binary.
	ErrBinary = errors.New("binary file")
	// ErrTooLarge is returned by ReadText for files above the index size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// binarySniffLen is how much of a file is inspected for NUL bytes.
const binarySniffLen = 8000

// Index is a read-only view of a repository.
// Paths are forward-slash and relative to the repository root.
type Index interface {
	// Exists reports whether path is an indexed file.
	Exists(path string) bool
	// ListFiles returns indexed files matching pattern in sorted order.
	// Patterns are doublestar globs ("**" spans directories, "{a,b}"
	// alternates); an empty pattern or "**" lists everything.
	ListFiles(pattern string) []string
	// ReadText returns at most maxBytes bytes of path (maxBytes <= 0 means no limit).
	ReadText(path string, maxBytes int) (string, error)
}

// Match reports whether name matches pattern using doublestar glob syntax.
// A pattern without a slash is matched against the base name only.
func Match(pattern, name string) bool {
	if pattern == "" || pattern == "**" {
		return true
	}
	if !strings.Contains(pattern, "/") {
		name = path.Base(name)
	}
	ok, err := doublestar.Match(pattern, name)
	return ok && err == nil
}

// filterSorted returns the entries of sorted files matching pattern.
func filterSorted(files []string, pattern string) []string {
	if pattern == "" || pattern == "**" {
		out := make([]string, len(files))
		copy(out, files)
		return out
	}
	var out []string
	for _, f := range files {
		if Match(pattern, f) {
			out = append(out, f)
		}
	}
	return out
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

func truncate(data []byte, maxBytes int) string {
	if maxBytes > 0 && len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return string(data)
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

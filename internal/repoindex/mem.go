package repoindex

import (
	"donecheck/internal/paths"
)

// MemIndex is an in-memory Index, mainly for tests and synthetic runs.
type MemIndex struct {
	files   map[string][]byte
	sorted  []string
	maxSize int
}

// NewMemIndex builds an index from path → content.
func NewMemIndex(files map[string]string) *MemIndex {
	m := &MemIndex{files: make(map[string][]byte, len(files))}
	for p, content := range files {
		m.files[paths.NormalizePath(p)] = []byte(content)
	}
	m.sorted = sortedKeys(m.files)
	return m
}

// WithMaxFileSize makes ReadText reject files larger than n bytes.
func (m *MemIndex) WithMaxFileSize(n int) *MemIndex {
	m.maxSize = n
	return m
}

// Exists implements Index.
func (m *MemIndex) Exists(path string) bool {
	_, ok := m.files[paths.NormalizePath(path)]
	return ok
}

// ListFiles implements Index.
func (m *MemIndex) ListFiles(pattern string) []string {
	return filterSorted(m.sorted, pattern)
}

// ReadText implements Index.
func (m *MemIndex) ReadText(path string, maxBytes int) (string, error) {
	data, ok := m.files[paths.NormalizePath(path)]
	if !ok {
		return "", ErrNotFound
	}
	if m.maxSize > 0 && len(data) > m.maxSize {
		return "", ErrTooLarge
	}
	if isBinary(data) {
		return "", ErrBinary
	}
	return truncate(data, maxBytes), nil
}

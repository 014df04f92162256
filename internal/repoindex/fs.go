package repoindex

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"donecheck/internal/config"
	"donecheck/internal/errors"
	"donecheck/internal/paths"
)

// Options controls how FSIndex walks the repository.
type Options struct {
	// Ignore lists directory or file patterns (see Match) that are never indexed.
	Ignore           []string
	RespectGitignore bool
	// MaxFileSizeBytes makes ReadText reject larger files; 0 disables the check.
	MaxFileSizeBytes int64
	// MaxFiles stops the walk after this many files; 0 means unlimited.
	MaxFiles int
	Logger   *slog.Logger
}

// OptionsFromConfig converts the index config section.
func OptionsFromConfig(cfg config.IndexConfig, logger *slog.Logger) Options {
	return Options{
		Ignore:           cfg.Ignore,
		RespectGitignore: cfg.RespectGitignore,
		MaxFileSizeBytes: int64(cfg.MaxFileSizeBytes),
		MaxFiles:         cfg.MaxFiles,
		Logger:           logger,
	}
}

// FSIndex indexes a directory tree once and serves reads from disk,
// caching file contents for the lifetime of the index.
type FSIndex struct {
	root      string
	opts      Options
	files     []string
	sizes     map[string]int64
	truncated bool

	mu    sync.Mutex
	cache map[string][]byte
}

// NewFSIndex walks root and builds the index.
func NewFSIndex(root string, opts Options) (*FSIndex, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", root)
		}
		return nil, errors.NewCheckError(errors.IndexUnavailable, "cannot index repository", err,
			errors.GetSuggestedFixes(errors.IndexUnavailable))
	}

	idx := &FSIndex{
		root:  root,
		opts:  opts,
		sizes: make(map[string]int64),
		cache: make(map[string][]byte),
	}
	if err := idx.walk(); err != nil {
		return nil, errors.NewCheckError(errors.IndexUnavailable, "cannot index repository", err,
			errors.GetSuggestedFixes(errors.IndexUnavailable))
	}

	opts.Logger.Debug("Repository indexed",
		"root", root,
		"files", len(idx.files),
		"truncated", idx.truncated,
	)
	return idx, nil
}

var errLimitReached = fmt.Errorf("file limit reached")

func (idx *FSIndex) walk() error {
	var gi ignoreMatcher

	err := filepath.WalkDir(idx.root, func(abs string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			idx.opts.Logger.Debug("Skipping unreadable path", "path", abs, "error", walkErr.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(idx.root, abs)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths we can't express relative to root
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				idx.loadGitignore(&gi, abs, "")
				return nil
			}
			if d.Name() == ".git" || idx.skipped(rel) || (idx.opts.RespectGitignore && gi.ignored(rel, true)) {
				return filepath.SkipDir
			}
			idx.loadGitignore(&gi, abs, rel)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if idx.skipped(rel) || (idx.opts.RespectGitignore && gi.ignored(rel, false)) {
			return nil
		}

		if idx.opts.MaxFiles > 0 && len(idx.files) >= idx.opts.MaxFiles {
			idx.truncated = true
			return errLimitReached
		}

		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		idx.files = append(idx.files, rel)
		idx.sizes[rel] = size
		return nil
	})
	if err == errLimitReached {
		idx.opts.Logger.Warn("File limit reached, index is partial", "maxFiles", idx.opts.MaxFiles)
		err = nil
	}
	if err != nil {
		return err
	}

	sort.Strings(idx.files)
	return nil
}

func (idx *FSIndex) skipped(rel string) bool {
	for _, pattern := range idx.opts.Ignore {
		if Match(pattern, rel) {
			return true
		}
	}
	return false
}

func (idx *FSIndex) loadGitignore(gi *ignoreMatcher, absDir, relDir string) {
	if !idx.opts.RespectGitignore {
		return
	}
	data, err := os.ReadFile(filepath.Join(absDir, ".gitignore"))
	if err != nil {
		return
	}
	gi.add(relDir, string(data))
}

// Root returns the indexed directory.
func (idx *FSIndex) Root() string {
	return idx.root
}

// Truncated reports whether MaxFiles cut the walk short.
func (idx *FSIndex) Truncated() bool {
	return idx.truncated
}

// Len returns the number of indexed files.
func (idx *FSIndex) Len() int {
	return len(idx.files)
}

// Exists implements Index.
func (idx *FSIndex) Exists(path string) bool {
	_, ok := idx.sizes[paths.NormalizePath(path)]
	return ok
}

// ListFiles implements Index.
func (idx *FSIndex) ListFiles(pattern string) []string {
	return filterSorted(idx.files, pattern)
}

// ReadText implements Index.
func (idx *FSIndex) ReadText(path string, maxBytes int) (string, error) {
	rel := paths.NormalizePath(path)
	size, ok := idx.sizes[rel]
	if !ok {
		return "", ErrNotFound
	}
	if idx.opts.MaxFileSizeBytes > 0 && size > idx.opts.MaxFileSizeBytes {
		return "", ErrTooLarge
	}

	idx.mu.Lock()
	data, cached := idx.cache[rel]
	idx.mu.Unlock()

	if !cached {
		var err error
		data, err = os.ReadFile(paths.JoinRepoPath(idx.root, rel))
		if err != nil {
			return "", err
		}
		idx.mu.Lock()
		idx.cache[rel] = data
		idx.mu.Unlock()
	}

	if isBinary(data) {
		return "", ErrBinary
	}
	return truncate(data, maxBytes), nil
}

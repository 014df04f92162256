// Package paths centralizes repository-relative path handling and the
// locations of donecheck's own state under <repo>/.donecheck.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-repository state directory.
const StateDirName = ".donecheck"

// CanonicalizePath converts an absolute path to a repo-relative, forward-slash path.
// Symlinks are resolved when the target exists.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes and strips a leading "./".
func NormalizePath(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// JoinRepoPath joins a repo root with a canonical (forward-slash) path.
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// Segments splits a canonical path into its directory and file segments.
func Segments(canonicalPath string) []string {
	p := strings.Trim(NormalizePath(canonicalPath), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// StateDir returns <repoRoot>/.donecheck.
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName)
}

// ConfigPath returns the path of the repository config file.
func ConfigPath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "config.json")
}

// LogPath returns the run log location.
func LogPath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "logs", "donecheck.log")
}

// HistoryDBPath returns the run history database location.
func HistoryDBPath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "history.db")
}

// EnsureStateDir creates <repoRoot>/.donecheck/logs if missing and returns the state dir.
func EnsureStateDir(repoRoot string) (string, error) {
	dir := StateDir(repoRoot)
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// FindRepoRoot walks up from start looking for a .git or .donecheck directory.
// If none is found, start itself is returned.
func FindRepoRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	dir := abs
	for {
		for _, marker := range []string{".git", StateDirName} {
			if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// IsStatePath reports whether a canonical path lies inside the state directory.
func IsStatePath(canonicalPath string) bool {
	segs := Segments(canonicalPath)
	return len(segs) > 0 && segs[0] == StateDirName
}

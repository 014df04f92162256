// Package testutil provides throwaway repository fixtures for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WriteTree creates a temporary repository containing files and returns its root.
// Keys are forward-slash repo-relative paths.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	AddFiles(t, root, files)
	return root
}

// AddFiles writes files under root, creating parent directories as needed.
func AddFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

// RequireGit skips the test when git is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// GitRepo creates a repository containing files committed with the given author time.
func GitRepo(t *testing.T, files map[string]string, authored time.Time) string {
	t.Helper()
	RequireGit(t)

	root := WriteTree(t, files)
	Git(t, root, authored, "init", "-q")
	Git(t, root, authored, "add", "-A")
	Git(t, root, authored, "commit", "-q", "-m", "fixture")
	return root
}

// CommitFiles writes files into an existing fixture repo and commits them at authored.
func CommitFiles(t *testing.T, root string, files map[string]string, authored time.Time) {
	t.Helper()

	AddFiles(t, root, files)
	Git(t, root, authored, "add", "-A")
	Git(t, root, authored, "commit", "-q", "-m", "update")
}

// Git runs a git command in root with a fixed identity and commit date.
func Git(t *testing.T, root string, when time.Time, args ...string) string {
	t.Helper()

	date := when.UTC().Format(time.RFC3339)
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=fixture",
		"GIT_AUTHOR_EMAIL=fixture@example.com",
		"GIT_COMMITTER_NAME=fixture",
		"GIT_COMMITTER_EMAIL=fixture@example.com",
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
		"GIT_CONFIG_NOSYSTEM=1",
		"HOME="+root,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/app.ts", "src/app.ts"},
		{"./src/app.ts", "src/app.ts"},
		{"././lib/x.go", "lib/x.go"},
		{`src\components\Button.tsx`, "src/components/Button.tsx"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSegments(t *testing.T) {
	got := Segments("./archive/old/notes.go")
	want := []string{"archive", "old", "notes.go"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Segments = %v, want %v", got, want)
	}
	if Segments("") != nil {
		t.Error("Segments(\"\") should be nil")
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pkg", "main.go")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "pkg/main.go" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "pkg/main.go")
	}

	if !IsWithinRepo(file, root) {
		t.Error("file should be within repo")
	}
	if IsWithinRepo(filepath.Dir(root), root) {
		t.Error("parent dir should not be within repo")
	}
}

func TestJoinRepoPath(t *testing.T) {
	got := JoinRepoPath("/repo", "src/lib/x.ts")
	want := filepath.Join("/repo", "src", "lib", "x.ts")
	if got != want {
		t.Errorf("JoinRepoPath = %q, want %q", got, want)
	}
}

func TestStatePaths(t *testing.T) {
	root := "/work/repo"
	if !strings.HasSuffix(ConfigPath(root), filepath.Join(StateDirName, "config.json")) {
		t.Errorf("ConfigPath = %q", ConfigPath(root))
	}
	if !strings.HasSuffix(HistoryDBPath(root), filepath.Join(StateDirName, "history.db")) {
		t.Errorf("HistoryDBPath = %q", HistoryDBPath(root))
	}
	if !strings.HasSuffix(LogPath(root), filepath.Join(StateDirName, "logs", "donecheck.log")) {
		t.Errorf("LogPath = %q", LogPath(root))
	}
	if !IsStatePath(".donecheck/history.db") || IsStatePath("src/.donecheck.go") || IsStatePath("") {
		t.Error("IsStatePath misclassified a path")
	}
}

func TestEnsureStateDir(t *testing.T) {
	root := t.TempDir()
	dir, err := EnsureStateDir(root)
	if err != nil {
		t.Fatalf("EnsureStateDir failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "logs"))
	if err != nil || !info.IsDir() {
		t.Fatalf("logs dir not created: %v", err)
	}
}

func TestFindRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRepoRoot(nested)
	if err != nil {
		t.Fatalf("FindRepoRoot failed: %v", err)
	}
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != wantResolved {
		t.Errorf("FindRepoRoot = %q, want %q", got, root)
	}
}

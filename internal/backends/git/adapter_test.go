package git

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"donecheck/internal/config"
	"donecheck/internal/errors"
	"donecheck/internal/slogutil"
	"donecheck/internal/testutil"
)

var (
	firstCommit  = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	secondCommit = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
)

func setupTestAdapter(t *testing.T, root string) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(root, config.GitConfig{Enabled: true, TimeoutMs: 5000}, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	return adapter
}

func TestAdapter_Name(t *testing.T) {
	root := testutil.GitRepo(t, map[string]string{"a.go": "package a\n"}, firstCommit)
	if got := setupTestAdapter(t, root).Name(); got != BackendID {
		t.Errorf("Name() = %q, want %q", got, BackendID)
	}
}

func TestAdapter_HeadCommit(t *testing.T) {
	root := testutil.GitRepo(t, map[string]string{"a.go": "package a\n"}, firstCommit)
	head, err := setupTestAdapter(t, root).HeadCommit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(head) != 40 || !isHex(head) {
		t.Errorf("HeadCommit() = %q, want a full hash", head)
	}
}

func TestAdapter_LineTime(t *testing.T) {
	root := testutil.GitRepo(t, map[string]string{
		"svc/cache.go": "package svc\n\n// TODO: evict stale entries\nfunc Get() {}\n",
	}, firstCommit)
	testutil.CommitFiles(t, root, map[string]string{
		"svc/cache.go": "package svc\n\n// TODO: evict stale entries\nfunc Get() {}\n// FIXME: lock ordering\n",
	}, secondCommit)

	adapter := setupTestAdapter(t, root)
	ctx := context.Background()

	tests := []struct {
		line int
		want time.Time
	}{
		{3, firstCommit},
		{5, secondCommit},
		// Past the end of the file: falls back to the last commit.
		{40, secondCommit},
	}
	for _, tt := range tests {
		got, err := adapter.LineTime(ctx, "svc/cache.go", tt.line)
		if err != nil {
			t.Fatalf("LineTime(%d) error: %v", tt.line, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("LineTime(%d) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestAdapter_BlameSurvivesCancelledCaller(t *testing.T) {
	root := testutil.GitRepo(t, map[string]string{
		"svc/cache.go": "package svc\n\n// TODO: evict stale entries\n",
	}, firstCommit)
	// Touch the file again so the last-commit fallback would give a different time.
	testutil.CommitFiles(t, root, map[string]string{
		"svc/cache.go": "package svc\n\n// TODO: evict stale entries\nfunc Get() {}\n",
	}, secondCommit)
	adapter := setupTestAdapter(t, root)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// The shared blame runs even though the caller that started it is gone.
	res := adapter.loadBlame(cancelled, "svc/cache.go")
	if res.err != nil {
		t.Fatalf("loadBlame with a cancelled caller: %v", res.err)
	}
	if got := res.lines[3]; !got.Equal(firstCommit) {
		t.Errorf("line 3 = %v, want %v", got, firstCommit)
	}

	_, _ = adapter.LineTime(cancelled, "svc/cache.go", 3)
	got, err := adapter.LineTime(context.Background(), "svc/cache.go", 3)
	if err != nil || !got.Equal(firstCommit) {
		t.Errorf("LineTime after a cancelled caller = %v, %v; want %v", got, err, firstCommit)
	}

	adapter.mu.Lock()
	cached := adapter.blames["svc/cache.go"]
	adapter.mu.Unlock()
	if cached.err != nil {
		t.Errorf("cached blame holds an error: %v", cached.err)
	}
}

func TestAdapter_Uncommitted(t *testing.T) {
	root := testutil.GitRepo(t, map[string]string{"a.go": "package a\n"}, firstCommit)
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n// TODO: new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.go"), []byte("// TODO: untracked\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	adapter := setupTestAdapter(t, root)
	ctx := context.Background()

	if _, err := adapter.LineTime(ctx, "a.go", 2); !stderrors.Is(err, ErrUncommitted) {
		t.Errorf("modified line: err = %v, want ErrUncommitted", err)
	}
	if got, err := adapter.LineTime(ctx, "a.go", 1); err != nil || !got.Equal(firstCommit) {
		t.Errorf("committed line = %v, %v", got, err)
	}
	if _, err := adapter.LineTime(ctx, "b.go", 1); err == nil {
		t.Error("untracked file: expected an error")
	}
}

func TestNewAdapter_NotARepository(t *testing.T) {
	testutil.RequireGit(t)
	dir := t.TempDir()
	_, err := NewAdapter(dir, config.GitConfig{}, slogutil.NewDiscardLogger())
	if !errors.HasCode(err, errors.BackendUnavailable) {
		t.Fatalf("err = %v, want BACKEND_UNAVAILABLE", err)
	}
}

func TestNewAdapter_DefaultTimeout(t *testing.T) {
	root := testutil.GitRepo(t, map[string]string{"a.go": "package a\n"}, firstCommit)
	adapter, err := NewAdapter(root, config.GitConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if adapter.queryTimeout != DefaultQueryTimeout {
		t.Errorf("queryTimeout = %v, want %v", adapter.queryTimeout, DefaultQueryTimeout)
	}
}

func TestParsePorcelain(t *testing.T) {
	out := "" +
		"1111111111111111111111111111111111111111 1 1 2\n" +
		"author fixture\n" +
		"author-time 1748772000\n" +
		"author-tz +0000\n" +
		"filename a.go\n" +
		"\tpackage a\n" +
		"1111111111111111111111111111111111111111 2 2\n" +
		"author fixture\n" +
		"author-time 1748772000\n" +
		"filename a.go\n" +
		"\tauthor-time 99\n" +
		zeroHash + " 3 3 1\n" +
		"author Not Committed Yet\n" +
		"author-time 1760000000\n" +
		"filename a.go\n" +
		"\t// TODO: new\n"

	lines := parsePorcelain(out)
	if len(lines) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(lines), lines)
	}
	want := time.Unix(1748772000, 0).UTC()
	if !lines[1].Equal(want) || !lines[2].Equal(want) {
		t.Errorf("lines 1,2 = %v, %v, want %v", lines[1], lines[2], want)
	}
	if !lines[3].IsZero() {
		t.Errorf("uncommitted line = %v, want zero", lines[3])
	}
}

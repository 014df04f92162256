package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	"donecheck/internal/history"
	"donecheck/internal/paths"
	"donecheck/internal/registry"
	"donecheck/internal/report"
	"donecheck/internal/slogutil"
	"donecheck/internal/testutil"
)

var fixtureNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func fixtureRepo(t *testing.T) string {
	t.Helper()
	return testutil.WriteTree(t, map[string]string{
		"ROADMAP.md": "# Roadmap\n\n## Planned\n\n- [x] Rate limiter\n- [ ] Webhook delivery\n",
		"internal/ratelimit/limiter.go": "package ratelimit\n\n// Limiter is a token bucket rate limiter.\n" +
			"type Limiter struct{}\n\n// TODO: add burst support\nfunc (l *Limiter) Allow() bool { return true }\n",
		"internal/ratelimit/limiter_test.go": "package ratelimit\n\nimport \"testing\"\n\nfunc TestLimiter(t *testing.T) {}\n",
		"cmd/server/main.go":                 "package main\n\nimport \"example/internal/ratelimit\"\n\nvar lim ratelimit.Limiter\n",
	})
}

func testSession(t *testing.T, root string) *session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = root
	return &session{repoRoot: root, cfg: cfg, logger: slogutil.NewDiscardLogger()}
}

func checkOpts(kind candidate.Kind) checkOptions {
	return checkOptions{
		Kind:        kind,
		Format:      "json",
		NoGit:       true,
		NoColor:     true,
		MinProgress: -1,
		Now:         fixtureNow,
	}
}

func TestRunCheck_FeaturesJSON(t *testing.T) {
	root := fixtureRepo(t)
	s := testSession(t, root)

	var out bytes.Buffer
	doc, err := runCheck(context.Background(), s, checkOpts(candidate.KindFeature), &out)
	if err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	if doc.Kind != candidate.KindFeature || len(doc.Results) != 2 {
		t.Fatalf("got kind %s with %d results, want 2 features", doc.Kind, len(doc.Results))
	}

	var decoded report.Document
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, out.String())
	}
	if decoded.RunID != doc.RunID {
		t.Errorf("decoded runId = %q, want %q", decoded.RunID, doc.RunID)
	}
	var descriptions []string
	for _, r := range decoded.Results {
		descriptions = append(descriptions, r.Candidate.Feature.Description)
	}
	if strings.Join(descriptions, "|") != "Rate limiter|Webhook delivery" {
		t.Errorf("descriptions = %v", descriptions)
	}
	if doc.Trend == nil || doc.Trend.Direction != report.TrendFirstRun {
		t.Errorf("trend = %+v, want first-run", doc.Trend)
	}
}

func TestRunCheck_HistoryTrend(t *testing.T) {
	root := fixtureRepo(t)
	s := testSession(t, root)
	ctx := context.Background()

	first, err := runCheck(ctx, s, checkOpts(candidate.KindTodo), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := runCheck(ctx, s, checkOpts(candidate.KindTodo), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Trend == nil || second.Trend.PreviousRunID != first.RunID {
		t.Fatalf("trend = %+v, want previous run %s", second.Trend, first.RunID)
	}

	store, err := history.Open(paths.HistoryDBPath(root), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.List(ctx, candidate.KindTodo, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("recorded %d runs, want 2", len(runs))
	}
}

func TestRunCheck_NoHistory(t *testing.T) {
	root := fixtureRepo(t)
	opts := checkOpts(candidate.KindTodo)
	opts.NoHistory = true

	doc, err := runCheck(context.Background(), testSession(t, root), opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Trend != nil {
		t.Errorf("trend = %+v, want none", doc.Trend)
	}
	if _, err := os.Stat(paths.HistoryDBPath(root)); !os.IsNotExist(err) {
		t.Errorf("history database created with --no-history: %v", err)
	}
	if len(doc.Results) != 1 || doc.Results[0].Candidate.Todo.Text != "add burst support" {
		t.Errorf("results = %+v", doc.Results)
	}
}

func TestRunCheck_OutputFile(t *testing.T) {
	root := fixtureRepo(t)
	opts := checkOpts(candidate.KindFeature)
	opts.Format = "markdown"
	opts.NoHistory = true
	opts.Output = filepath.Join(root, "reports", "status.md")

	var stdout bytes.Buffer
	if _, err := runCheck(context.Background(), testSession(t, root), opts, &stdout); err != nil {
		t.Fatal(err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty when --output is set, got %q", stdout.String())
	}
	data, err := os.ReadFile(opts.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Feature Implementation Report") {
		t.Errorf("markdown report missing title:\n%s", data)
	}
}

// flakyFile accepts writes but fails to flush on Close.
type flakyFile struct {
	bytes.Buffer
}

func (f *flakyFile) Close() error { return stderrors.New("no space left on device") }

func TestRunCheck_OutputCloseError(t *testing.T) {
	root := fixtureRepo(t)
	opts := checkOpts(candidate.KindFeature)
	opts.NoHistory = true
	opts.Output = filepath.Join(root, "reports", "status.json")

	var written *flakyFile
	orig := createOutput
	createOutput = func(string) (io.WriteCloser, error) {
		written = &flakyFile{}
		return written, nil
	}
	t.Cleanup(func() { createOutput = orig })

	_, err := runCheck(context.Background(), testSession(t, root), opts, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "no space left on device") {
		t.Fatalf("expected the close error to be reported, got %v", err)
	}
	if written == nil || written.Len() == 0 {
		t.Error("the report should have been rendered before Close")
	}
}

func TestRunCheck_SyncRegistry(t *testing.T) {
	root := fixtureRepo(t)
	testutil.AddFiles(t, root, map[string]string{
		".donecheck/registry.json": `{"version": 1, "features": [{"description": "Webhook delivery", "status": "planned"}]}`,
	})
	opts := checkOpts(candidate.KindFeature)
	opts.NoHistory = true
	opts.SyncRegistry = true

	doc, err := runCheck(context.Background(), testSession(t, root), opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Results) != 2 {
		t.Fatalf("got %d results, want the registry entry merged into 2", len(doc.Results))
	}

	reg, err := registry.Load(filepath.Join(root, ".donecheck", "registry.json"))
	if err != nil {
		t.Fatal(err)
	}
	obs := reg.Features[0].Observed
	if obs == nil || obs.RunID != doc.RunID {
		t.Fatalf("observed = %+v, want run %s", obs, doc.RunID)
	}
}

func TestRunCheck_MinProgressGate(t *testing.T) {
	root := fixtureRepo(t)
	opts := checkOpts(candidate.KindFeature)
	opts.NoHistory = true
	opts.MinProgress = 101

	_, err := runCheck(context.Background(), testSession(t, root), opts, &bytes.Buffer{})
	var gate *gateError
	if !stderrors.As(err, &gate) {
		t.Fatalf("err = %v, want a gate error", err)
	}
	if exitCode(err) != 2 {
		t.Errorf("exitCode = %d, want 2", exitCode(err))
	}
	if exitCode(stderrors.New("boom")) != 1 {
		t.Error("ordinary errors should exit 1")
	}
}

func TestRunCheck_BadFlags(t *testing.T) {
	root := fixtureRepo(t)
	s := testSession(t, root)

	opts := checkOpts(candidate.KindFeature)
	opts.Format = "yaml"
	if _, err := runCheck(context.Background(), s, opts, &bytes.Buffer{}); err == nil {
		t.Error("unsupported format should fail")
	}

	opts = checkOpts(candidate.KindFeature)
	opts.GroupBy = "owner"
	if _, err := runCheck(context.Background(), s, opts, &bytes.Buffer{}); err == nil {
		t.Error("unsupported group-by should fail")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    candidate.Kind
		wantErr bool
	}{
		{"", "", false},
		{"features", candidate.KindFeature, false},
		{"todo", candidate.KindTodo, false},
		{"bugs", "", true},
	}
	for _, tt := range tests {
		got, err := parseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseKind(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestHistoryCommands(t *testing.T) {
	root := fixtureRepo(t)
	ctx := context.Background()
	doc, err := runCheck(ctx, testSession(t, root), checkOpts(candidate.KindTodo), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	store, err := openHistory(root, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var out bytes.Buffer
	if err := listRuns(ctx, store, "", 10, "human", &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), doc.RunID) {
		t.Errorf("list output missing run %s:\n%s", doc.RunID, out.String())
	}

	out.Reset()
	if err := showRun(ctx, store, doc.RunID, report.FormatJSON, &out); err != nil {
		t.Fatal(err)
	}
	var shown report.Document
	if err := json.Unmarshal(out.Bytes(), &shown); err != nil || shown.RunID != doc.RunID {
		t.Errorf("show returned %q, %v", shown.RunID, err)
	}
	if err := showRun(ctx, store, "missing", report.FormatJSON, &out); err == nil {
		t.Error("show of an unknown run should fail")
	}

	out.Reset()
	id := doc.Results[0].Candidate.ID()
	if err := showItem(ctx, store, id, "human", &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), doc.RunID) {
		t.Errorf("item output missing run:\n%s", out.String())
	}
}

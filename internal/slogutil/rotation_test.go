package slogutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"donecheck/internal/config"
	"donecheck/internal/paths"
)

func TestParseSize_ConfigValues(t *testing.T) {
	tests := map[string]int64{
		config.DefaultConfig().Logging.MaxSize: 5 << 20,
		"512kb":                                512 << 10,
		"1.5 MB":                               3 << 19,
		"2GB":                                  2 << 30,
		"4096":                                 4096,
		"":                                     0,
		"ten MB":                               0,
		"-1MB":                                 0,
	}
	for in, want := range tests {
		if got := ParseSize(in); got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

// runLogFiles lists the run log and its backups, newest first.
func runLogFiles(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(paths.LogPath(root) + "*")
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names
}

func TestLoggerFactory_RotatesRunLog(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.MaxSize = "300B"
	cfg.Logging.MaxBackups = 2

	factory := NewLoggerFactory(root, cfg, slog.LevelError, false)
	logger := factory.RunLogger(&strings.Builder{})
	for i := 0; i < 40; i++ {
		logger.Info("Candidate scored", "id", fmt.Sprintf("todo:src/app.go:%d", i), "confidence", i)
	}
	if err := factory.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got := strings.Join(runLogFiles(t, root), ",")
	want := "donecheck.log,donecheck.log.1,donecheck.log.2"
	if got != want {
		t.Fatalf("run log files = %s, want %s", got, want)
	}
	for _, name := range []string{"donecheck.log", "donecheck.log.1"} {
		info, err := os.Stat(filepath.Join(filepath.Dir(paths.LogPath(root)), name))
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() > 300 {
			t.Errorf("%s is %d bytes, limit is 300", name, info.Size())
		}
	}

	data, err := os.ReadFile(paths.LogPath(root))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "id=todo:src/app.go:39") {
		t.Errorf("newest record should be in the live log, got:\n%s", data)
	}
}

func TestLoggerFactory_UnboundedRunLog(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.MaxSize = ""

	factory := NewLoggerFactory(root, cfg, slog.LevelError, false)
	logger := factory.RunLogger(&strings.Builder{})
	for i := 0; i < 40; i++ {
		logger.Info("Candidate scored", "id", i)
	}
	_ = factory.Close()

	if got := runLogFiles(t, root); len(got) != 1 {
		t.Errorf("an empty logging.maxSize should never rotate, got %v", got)
	}
}

func TestRotatingFile_ResumesExistingSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "donecheck.log")

	rf, err := OpenRotatingFile(path, 64, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte(strings.Repeat("a", 60))); err != nil {
		t.Fatal(err)
	}
	_ = rf.Close()

	// A second run appends to the same file and must account for what is there.
	rf, err = OpenRotatingFile(path, 64, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte("second run\n")); err != nil {
		t.Fatal(err)
	}
	_ = rf.Close()

	if _, err := rf.Write([]byte("late")); err == nil {
		t.Error("write after Close should fail")
	}

	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected rollover to %s.1: %v", path, err)
	}
	if len(backup) != 60 {
		t.Errorf("backup holds %d bytes, want the first run's 60", len(backup))
	}
	live, _ := os.ReadFile(path)
	if string(live) != "second run\n" {
		t.Errorf("live log = %q", live)
	}
}

package slogutil

import (
	"io"
	"log/slog"

	"donecheck/internal/config"
	"donecheck/internal/paths"
)

// LoggerFactory builds the logger for a single donecheck run.
// Console output follows the CLI verbosity; the run log under
// <repoRoot>/.donecheck/logs follows the configured level unless the CLI asks for more.
type LoggerFactory struct {
	repoRoot   string
	config     *config.Config
	cliLevel   slog.Level
	cliVerbose bool
	closers    []io.Closer
}

// NewLoggerFactory creates a new logger factory.
// cliVerbose reports whether cliLevel came from an explicit -v flag.
func NewLoggerFactory(repoRoot string, cfg *config.Config, cliLevel slog.Level, cliVerbose bool) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		repoRoot:   repoRoot,
		config:     cfg,
		cliLevel:   cliLevel,
		cliVerbose: cliVerbose,
	}
}

// RunLogger returns a logger writing to console and, when enabled, the rotated run log.
// Failure to open the run log degrades to console-only logging.
func (f *LoggerFactory) RunLogger(console io.Writer) *slog.Logger {
	handlers := []slog.Handler{
		NewHandler(console, &slog.HandlerOptions{Level: f.cliLevel}),
	}

	if fileHandler := f.fileHandler(); fileHandler != nil {
		handlers = append(handlers, fileHandler)
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(NewTeeHandler(handlers...))
}

func (f *LoggerFactory) fileHandler() slog.Handler {
	if f.repoRoot == "" || !f.config.Logging.File {
		return nil
	}
	if _, err := paths.EnsureStateDir(f.repoRoot); err != nil {
		return nil
	}

	level := f.effectiveFileLevel()
	// A zero size disables rotation.
	w, err := OpenRotatingFile(paths.LogPath(f.repoRoot), ParseSize(f.config.Logging.MaxSize), f.config.Logging.MaxBackups)
	if err != nil {
		return nil
	}

	f.closers = append(f.closers, w)
	return NewHandler(w, &slog.HandlerOptions{Level: level})
}

// effectiveFileLevel returns the configured level, lowered when -v asks for more detail.
func (f *LoggerFactory) effectiveFileLevel() slog.Level {
	level := slog.LevelInfo
	if f.config.Logging.Level != "" {
		level = LevelFromString(f.config.Logging.Level)
	}
	if f.cliVerbose && f.cliLevel < level {
		return f.cliLevel
	}
	return level
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}

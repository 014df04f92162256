// Package history keeps past reports in a SQLite database under .donecheck
// so that a run can be compared with the previous one.
package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"donecheck/internal/candidate"
	"donecheck/internal/errors"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = stderrors.New("run not found")

// Store is the run history database.
type Store struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// Run is the stored summary of one report.
type Run struct {
	RunID           string         `json:"runId"`
	Kind            candidate.Kind `json:"kind"`
	CreatedAt       time.Time      `json:"createdAt"`
	Total           int            `json:"total"`
	ProgressPercent int            `json:"progressPercent"`
	CleanupCount    int            `json:"cleanupCount"`
	Warnings        int            `json:"warnings"`
	PayloadBytes    int            `json:"payloadBytes"`
}

// ItemPoint is one candidate's state in one run.
type ItemPoint struct {
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	// CandidateID differs from the requested ID when the item sat on another line.
	CandidateID string `json:"candidateId"`
	Status      string `json:"status"`
	Confidence  int    `json:"confidence"`
}

// Open opens or creates the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, unavailable("failed to create history directory", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("failed to open history database", err)
	}
	// A single connection keeps PRAGMAs and transactions on one handle.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, unavailable("failed to set pragma", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		conn.Close()
		return nil, unavailable("failed to create compressor", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		conn.Close()
		return nil, unavailable("failed to create decompressor", err)
	}

	s := &Store{conn: conn, path: path, logger: logger, enc: enc, dec: dec}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, unavailable("failed to initialize history schema", err)
	}
	return s, nil
}

// Close releases the database and codecs.
func (s *Store) Close() error {
	if s.dec != nil {
		s.dec.Close()
	}
	if s.enc != nil {
		s.enc.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", "error", err.Error(), "rollbackError", rbErr.Error())
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func unavailable(msg string, cause error) error {
	return errors.NewCheckError(errors.HistoryUnavailable, msg, cause, errors.GetSuggestedFixes(errors.HistoryUnavailable))
}

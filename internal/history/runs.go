package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"donecheck/internal/candidate"
	"donecheck/internal/report"
)

// Save stores a report and its per-item states.
func (s *Store) Save(ctx context.Context, doc *report.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	payload := s.enc.EncodeAll(data, nil)

	summary := doc.Aggregate.Summary
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (run_id, kind, created_at, total, progress_percent, cleanup_count, warnings, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.RunID, string(doc.Kind), doc.GeneratedAt.UTC().Format(time.RFC3339Nano),
			summary.Total, summary.ProgressPercent, summary.CleanupCount, len(doc.Warnings), payload)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO run_items (run_id, candidate_id, fingerprint, status, confidence) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range doc.Results {
			if _, err := stmt.ExecContext(ctx, doc.RunID, r.Candidate.ID(), r.Candidate.Fingerprint(), string(r.Status), r.Confidence); err != nil {
				return fmt.Errorf("failed to insert run item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Run saved", "runId", doc.RunID, "kind", doc.Kind, "items", len(doc.Results),
		"rawBytes", len(data), "storedBytes", len(payload))
	return nil
}

// List returns the most recent runs of a kind, newest first. An empty kind lists all runs.
func (s *Store) List(ctx context.Context, kind candidate.Kind, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT run_id, kind, created_at, total, progress_percent, cleanup_count, warnings, length(payload)
		 FROM runs WHERE (? = '' OR kind = ?) ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var kindStr, created string
		if err := rows.Scan(&r.RunID, &kindStr, &created, &r.Total, &r.ProgressPercent, &r.CleanupCount, &r.Warnings, &r.PayloadBytes); err != nil {
			return nil, err
		}
		r.Kind = candidate.Kind(kindStr)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Load returns the full report of a run.
func (s *Store) Load(ctx context.Context, runID string) (*report.Document, error) {
	var payload []byte
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	data, err := s.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress run %s: %w", runID, err)
	}
	var doc report.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &doc, nil
}

// Previous returns the newest run of kind other than excludeRunID, or ErrNotFound.
func (s *Store) Previous(ctx context.Context, kind candidate.Kind, excludeRunID string) (*report.Document, error) {
	var runID string
	err := s.conn.QueryRowContext(ctx,
		`SELECT run_id FROM runs WHERE kind = ? AND run_id != ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		string(kind), excludeRunID).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find previous run: %w", err)
	}
	return s.Load(ctx, runID)
}

// ItemHistory returns the recorded states of one candidate, oldest first.
// Runs where the candidate sat on another line are found by the fingerprint
// it had most recently, so a TODO that moved keeps its history.
func (s *Store) ItemHistory(ctx context.Context, candidateID string) ([]ItemPoint, error) {
	var fingerprint string
	err := s.conn.QueryRowContext(ctx,
		`SELECT i.fingerprint FROM run_items i JOIN runs r ON r.run_id = i.run_id
		 WHERE i.candidate_id = ? ORDER BY r.created_at DESC, r.rowid DESC LIMIT 1`, candidateID).Scan(&fingerprint)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item history: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT i.run_id, r.created_at, i.candidate_id, i.status, i.confidence
		 FROM run_items i JOIN runs r ON r.run_id = i.run_id
		 WHERE i.candidate_id = ? OR (? != '' AND i.fingerprint = ?)
		 ORDER BY r.created_at ASC, r.rowid ASC, (i.candidate_id = ?) DESC, i.candidate_id ASC`,
		candidateID, fingerprint, fingerprint, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item history: %w", err)
	}
	defer rows.Close()

	var points []ItemPoint
	for rows.Next() {
		var p ItemPoint
		var created string
		if err := rows.Scan(&p.RunID, &created, &p.CandidateID, &p.Status, &p.Confidence); err != nil {
			return nil, err
		}
		// One point per run; the exact ID sorts first.
		if n := len(points); n > 0 && points[n-1].RunID == p.RunID {
			continue
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		points = append(points, p)
	}
	return points, rows.Err()
}

// Prune keeps the newest keep runs of kind and deletes the rest.
func (s *Store) Prune(ctx context.Context, kind candidate.Kind, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM runs WHERE kind = ? AND run_id NOT IN (
			SELECT run_id FROM runs WHERE kind = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, string(kind), string(kind), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM run_items WHERE run_id NOT IN (SELECT run_id FROM runs)`); err != nil {
		return int(n), fmt.Errorf("failed to prune run items: %w", err)
	}
	if n > 0 {
		s.logger.Debug("History pruned", "kind", kind, "deleted", n, "kept", keep)
	}
	return int(n), nil
}

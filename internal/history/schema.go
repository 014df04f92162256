package history

import (
	"context"
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 2

// migrate creates the schema on a new database and upgrades older ones.
func (s *Store) migrate() error {
	if _, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := s.conn.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		version = 0
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("history schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	s.logger.Info("Initializing history database", "path", s.path, "fromVersion", version, "toVersion", currentSchemaVersion)
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		if version < 1 {
			if err := createV1(tx); err != nil {
				return err
			}
		}
		if version < 2 {
			if err := migrateV2(tx); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
		return err
	})
}

func createV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE runs (
			run_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			progress_percent INTEGER NOT NULL,
			cleanup_count INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			payload BLOB NOT NULL
		)`,
		`CREATE INDEX idx_runs_kind_created ON runs(kind, created_at)`,
		`CREATE TABLE run_items (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			candidate_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			PRIMARY KEY (run_id, candidate_id)
		)`,
		`CREATE INDEX idx_run_items_candidate ON run_items(candidate_id)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
	}
	return nil
}

// migrateV2 indexes fingerprints. Version 1 fingerprints included the line,
// so they are cleared rather than matched against line-free ones.
func migrateV2(tx *sql.Tx) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_run_items_fingerprint ON run_items(fingerprint)`,
		`UPDATE run_items SET fingerprint = ''`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate history schema to v2: %w", err)
		}
	}
	return nil
}

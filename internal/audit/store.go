package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"improv/internal/logging"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists audit snapshots in SQLite, one row per (run, snippet,
// phrase), so runs over the same grammar can be compared.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Run describes one saved snapshot.
type Run struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Total     int
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		label TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS audit_counts (
		run_id TEXT NOT NULL REFERENCES audit_runs(id) ON DELETE CASCADE,
		snippet TEXT NOT NULL,
		phrase TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, snippet, phrase)
	);
	CREATE INDEX IF NOT EXISTS idx_audit_counts_snippet ON audit_counts(snippet);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create audit tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// slowSave is the duration after which a Save is logged as a warning.
const slowSave = time.Second

// Save writes snap as a new run and returns its ID.
func (s *Store) Save(ctx context.Context, label string, snap Snapshot) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Save")
	defer timer.StopWithThreshold(slowSave)

	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO audit_runs (id, label, created_at) VALUES (?, ?, ?)",
		runID, label, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO audit_counts (run_id, snippet, phrase, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for snippet, phrases := range snap {
		for phrase, n := range phrases {
			if _, err := stmt.ExecContext(ctx, runID, snippet, phrase, n); err != nil {
				return "", fmt.Errorf("failed to insert count for %s: %w", snippet, err)
			}
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit audit run: %w", err)
	}

	logging.Get(logging.CategoryStore).Info("Saved audit run %s (%d phrases)", runID, rows)
	return runID, nil
}

// Load reads the snapshot saved under runID.
func (s *Store) Load(ctx context.Context, runID string) (Snapshot, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_runs WHERE id = ?", runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("audit run %q not found", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT snippet, phrase, count FROM audit_counts WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	snap := make(Snapshot)
	for rows.Next() {
		var snippet, phrase string
		var n int
		if err := rows.Scan(&snippet, &phrase, &n); err != nil {
			return nil, err
		}
		if snap[snippet] == nil {
			snap[snippet] = make(map[string]int)
		}
		snap[snippet][phrase] = n
	}
	return snap, rows.Err()
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, COALESCE(r.label, ''), r.created_at, COALESCE(SUM(c.count), 0)
		FROM audit_runs r
		LEFT JOIN audit_counts c ON c.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Label, &r.CreatedAt, &r.Total); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

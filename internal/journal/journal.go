// Package journal keeps a local SQLite history of convergence runs so an
// operator can see what a host did and when.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one journaled convergence run.
type Run struct {
	ID         string    `json:"id"`
	ConfigName string    `json:"config"`
	Status     string    `json:"status"`
	Changed    int       `json:"changed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Error      string    `json:"error,omitempty"`
	Steps      []Step    `json:"steps,omitempty"`
}

// Step is the journaled outcome of one step.
type Step struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Changed  bool          `json:"changed"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Journal stores runs in a SQLite database.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(j.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Record stores summary and its step results in one transaction.
func (j *Journal) Record(ctx context.Context, configName string, summary model.RunSummary) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, config_name, status, changed, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		configName,
		summary.Status(),
		summary.Changed(),
		summary.Started.UTC(),
		summary.Finished.UTC(),
		errorText(summary.Err),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", summary.RunID, err)
	}

	for i, res := range summary.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO steps (run_id, position, step, status, changed, message, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.RunID,
			i,
			res.Step,
			res.Status,
			res.Changed,
			res.Message,
			errorText(res.Error),
			res.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to record step %s: %w", res.Step, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs first, without their steps. A limit of
// zero or less returns every run.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, config_name, status, changed, started_at, finished_at, COALESCE(error, '')
		FROM runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ConfigName, &r.Status, &r.Changed, &r.StartedAt, &r.FinishedAt, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one run with its steps in table order.
func (j *Journal) Get(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	err := j.db.QueryRowContext(ctx, `
		SELECT id, config_name, status, changed, started_at, finished_at, COALESCE(error, '')
		FROM runs
		WHERE id = ?`, id).
		Scan(&r.ID, &r.ConfigName, &r.Status, &r.Changed, &r.StartedAt, &r.FinishedAt, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT step, status, changed, COALESCE(message, ''), COALESCE(error, ''), duration_ms
		FROM steps
		WHERE run_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s Step
		var ms int64
		if err := rows.Scan(&s.Name, &s.Status, &s.Changed, &s.Message, &s.Error, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		r.Steps = append(r.Steps, s)
	}
	return r, rows.Err()
}

func errorText(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}

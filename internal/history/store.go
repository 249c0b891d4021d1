// Package history persists finished execution records to a local
// SQLite database so operators can review past runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"

	"github.com/o0x1024/sentinel-core/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Record is one finished execution.
type Record struct {
	ID              int64
	ExecutionID     string
	TaskDescription string
	Engine          string
	Complexity      models.TaskComplexity
	Success         bool
	ErrorMessage    string
	Duration        time.Duration
	StepsTotal      int
	StepsFailed     int
	LeakedResources int
	Summary         string
	CreatedAt       time.Time
}

// Store manages the SQLite history database. A flock next to the
// database file coordinates writers across processes; the in-memory
// database used by tests skips the lock.
type Store struct {
	db     *sql.DB
	dbPath string
	lock   *flock.Flock
}

// NewStore opens (creating if needed) the history database at dbPath.
// Pass ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	var lock *flock.Flock
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		lock = flock.New(dbPath + ".lock")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// busy_timeout must come first so the remaining pragmas wait on
	// locks instead of failing.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, lock: lock}, nil
}

// execWithRetry retries a statement with exponential backoff on
// "database is locked" errors during concurrent initialization.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withLock runs fn holding the cross-process lock when one exists.
func (s *Store) withLock(fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire history lock: %w", err)
	}
	defer s.lock.Unlock()
	return fn()
}

// Record inserts a finished execution.
func (s *Store) Record(ctx context.Context, rec Record) error {
	return s.withLock(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO executions
				(execution_id, task_description, engine, complexity, success,
				 error_message, duration_ms, steps_total, steps_failed,
				 leaked_resources, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ExecutionID, rec.TaskDescription, rec.Engine, string(rec.Complexity),
			rec.Success, rec.ErrorMessage, rec.Duration.Milliseconds(),
			rec.StepsTotal, rec.StepsFailed, rec.LeakedResources, rec.Summary)
		if err != nil {
			return fmt.Errorf("record execution %s: %w", rec.ExecutionID, err)
		}
		return nil
	})
}

// List returns the most recent executions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, task_description, engine, complexity, success,
		       error_message, duration_ms, steps_total, steps_failed,
		       leaked_resources, summary, created_at
		FROM executions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var complexity string
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.ExecutionID, &rec.TaskDescription,
			&rec.Engine, &complexity, &rec.Success, &rec.ErrorMessage,
			&durationMS, &rec.StepsTotal, &rec.StepsFailed,
			&rec.LeakedResources, &rec.Summary, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		rec.Complexity = models.TaskComplexity(complexity)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune removes records older than keepDays and, when maxRecords > 0,
// everything beyond the newest maxRecords. Returns how many rows were
// deleted.
func (s *Store) Prune(ctx context.Context, keepDays, maxRecords int) (int64, error) {
	var deleted int64
	err := s.withLock(func() error {
		if keepDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -keepDays)
			res, err := s.db.ExecContext(ctx,
				`DELETE FROM executions WHERE created_at < ?`, cutoff)
			if err != nil {
				return fmt.Errorf("prune by age: %w", err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		if maxRecords > 0 {
			res, err := s.db.ExecContext(ctx, `
				DELETE FROM executions WHERE id NOT IN (
					SELECT id FROM executions ORDER BY created_at DESC, id DESC LIMIT ?
				)`, maxRecords)
			if err != nil {
				return fmt.Errorf("prune by count: %w", err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		return nil
	})
	return deleted, err
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-cloud-etl/internal/model"
)

// ErrRunNotFound is returned when a run ID is not tracked
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no limit is given
const DefaultListLimit = 50

// Store tracks pipeline runs in sqlite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the sqlite database at dbPath and creates the tables
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	s := newStore(db)
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) migrate() error {
	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		reference_date TEXT,
		status TEXT,
		selected INTEGER DEFAULT 0,
		groups_count INTEGER DEFAULT 0,
		output_path TEXT DEFAULT '',
		error_message TEXT DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`
	logTable := `
	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		level TEXT,
		message TEXT,
		details TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, errorTable, logTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a newly started run
func (s *Store) SaveRun(ctx context.Context, runID, referenceDate string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, reference_date, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, referenceDate, string(model.StateIdle), now, now)
	return err
}

// UpdateRunStatus updates run status
func (s *Store) UpdateRunStatus(ctx context.Context, runID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, s.now(), runID)
	return err
}

// FinishRun writes the final counters and status of a run
func (s *Store) FinishRun(ctx context.Context, rec model.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, selected = ?, groups_count = ?, output_path = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		rec.Status, rec.Selected, rec.Groups, rec.OutputPath, rec.Error, s.now(), rec.ID)
	return err
}

// SaveRunError records an error for a run
func (s *Store) SaveRunError(ctx context.Context, runID string, err error) error {
	if err == nil {
		return nil
	}
	_, e := s.db.ExecContext(ctx,
		`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), s.now())
	return e
}

// SaveRunLog appends a stage log line
func (s *Store) SaveRunLog(ctx context.Context, entry model.RunLog) error {
	details := "{}"
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return err
		}
		details = string(b)
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (run_id, stage, level, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Stage, entry.Level, entry.Message, details, created)
	return err
}

const runColumns = `id, reference_date, status, selected, groups_count, output_path, error_message, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.RunRecord, error) {
	var r model.RunRecord
	err := row.Scan(&r.ID, &r.ReferenceDate, &r.Status, &r.Selected, &r.Groups,
		&r.OutputPath, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.RunRecord, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches one run
func (s *Store) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunLogs returns the stage log of a run in insertion order
func (s *Store) GetRunLogs(ctx context.Context, runID string) ([]model.RunLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, stage, level, message, details, created_at FROM run_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]model.RunLog, 0)
	for rows.Next() {
		var l model.RunLog
		var details string
		if err := rows.Scan(&l.ID, &l.RunID, &l.Stage, &l.Level, &l.Message, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
				return nil, err
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

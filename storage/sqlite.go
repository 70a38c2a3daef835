package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KnotATypo/Rent-Finder/models"
)

// SQLiteStore holds operational data: run history and persisted stage logs.
// Domain data lives in Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY,
		run_uuid TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings_found INTEGER,
		listings_new INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		stage TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON logs(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.Run) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO runs (run_uuid, started_at, status, listings_found, listings_new, errors_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.UUID, run.StartedAt, run.Status, run.ListingsFound, run.ListingsNew, run.ErrorsCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.Run) error {
	_, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, listings_found = ?, listings_new = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound, run.ListingsNew, run.ErrorsCount, run.ID,
	)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, stage string) error {
	_, err := s.db.Exec(`
		INSERT INTO logs (run_id, timestamp, level, message, stage)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, stage,
	)
	return err
}

// GetLastRunTime returns when the most recent run started, or the zero time
// when no run has been recorded.
func (s *SQLiteStore) GetLastRunTime() (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(started_at) FROM runs`).Scan(&t)
	if err != nil {
		return time.Time{}, err
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

func (s *SQLiteStore) GetRecentRuns(limit int) ([]models.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, run_uuid, started_at, finished_at, status, listings_found, listings_new, errors_count
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.UUID, &run.StartedAt, &finished, &run.Status,
			&run.ListingsFound, &run.ListingsNew, &run.ErrorsCount); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps sqlite from returning SQLITE_BUSY under the
	// async writer.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS level_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			level_id INTEGER NOT NULL,
			start_ts TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_score INTEGER NOT NULL DEFAULT 0,
			last_passed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS prompt_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			attempt_ts TEXT NOT NULL DEFAULT (datetime('now')),
			score INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			FOREIGN KEY(run_id) REFERENCES level_runs(id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Progress, error) {
	raw, ok, err := s.getSetting(ctx, ProgressKey)
	if err != nil {
		return DefaultProgress(), &PersistenceReadError{Err: err}
	}
	if !ok {
		return DefaultProgress(), nil
	}
	p, err := DecodeProgress([]byte(raw))
	if err != nil {
		return DefaultProgress(), &PersistenceReadError{Err: err}
	}
	return p, nil
}

func (s *SQLiteStore) Save(ctx context.Context, p Progress) error {
	body, err := EncodeProgress(p)
	if err != nil {
		return err
	}
	return s.SaveSettings(ctx, map[string]string{ProgressKey: string(body)})
}

func (s *SQLiteStore) Reset(ctx context.Context) (Progress, error) {
	p := DefaultProgress()
	if err := s.Save(ctx, p); err != nil {
		return p, fmt.Errorf("reset progress: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) getSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// LoadSettings returns every stored setting except the progress record.
func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings WHERE key <> ?`, ProgressKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) StartLevelRun(ctx context.Context, run LevelRun) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO level_runs(session_id, level_id, start_ts) VALUES(?,?,?)`,
		run.SessionID,
		run.LevelID,
		run.StartTS.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, runID int64, score int, passed bool) error {
	passedInt := 0
	if passed {
		passedInt = 1
	}
	score = ClampScore(score)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO prompt_attempts(run_id, score, passed) VALUES(?, ?, ?)`, runID, score, passedInt); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE level_runs SET attempts = attempts + 1, last_score = ?, last_passed = ? WHERE id = ?`,
		score, passedInt, runID,
	); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM level_runs),
			COUNT(*),
			COALESCE(SUM(passed),0),
			COALESCE(MAX(score),0)
		FROM prompt_attempts
	`)
	if err := row.Scan(&out.LevelRuns, &out.Attempts, &out.Passes, &out.BestScore); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) GetLastRun(ctx context.Context) (*LastRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT level_id, start_ts, last_score, last_passed, attempts
		FROM level_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	var (
		out        LastRun
		startTSRaw string
		lastPassed int
	)
	if err := row.Scan(&out.LevelID, &startTSRaw, &out.LastScore, &lastPassed, &out.Attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if t, err := time.Parse(timeLayout, startTSRaw); err == nil {
		out.StartTS = t
	}
	out.LastPassed = lastPassed == 1
	return &out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

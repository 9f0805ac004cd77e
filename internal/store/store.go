// Package store keeps the append-only SQLite journal of results and
// delivery attempts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timestamps are stored in UTC with a fixed-width fraction so text order
// matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Store wraps SQLite access for journal data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			errors_found INTEGER NOT NULL,
			wrong_attempts INTEGER NOT NULL,
			time_remaining_ms INTEGER NOT NULL,
			end_cause TEXT NOT NULL,
			empathy INTEGER NOT NULL,
			creativity INTEGER NOT NULL,
			problem_solving INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			card_id TEXT NOT NULL,
			status TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			err TEXT NOT NULL,
			buffered INTEGER NOT NULL,
			attempted_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_ended_at ON results(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_session_id ON deliveries(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertResult stores a finished session result.
func (s *Store) InsertResult(ctx context.Context, r model.Result) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (session_id, started_at, ended_at, errors_found, wrong_attempts, time_remaining_ms, end_cause, empathy, creativity, problem_solving)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID,
		formatTime(r.StartedAt),
		formatTime(r.EndedAt),
		r.ErrorsFound,
		r.WrongAttempts,
		r.TimeRemaining.Milliseconds(),
		string(r.EndCause),
		r.Score.Empathy,
		r.Score.Creativity,
		r.Score.ProblemSolving,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertDelivery stores one delivery attempt.
func (s *Store) InsertDelivery(ctx context.Context, o model.Outcome) (int64, error) {
	buffered := 0
	if o.Buffered {
		buffered = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (session_id, card_id, status, status_code, err, buffered, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.SessionID,
		o.CardID,
		string(o.Status),
		o.StatusCode,
		o.Err,
		buffered,
		formatTime(o.AttemptedAt),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListResults returns journaled results, oldest first, filtered by cfg.
// Last keeps only the most recent N matches.
func (s *Store) ListResults(ctx context.Context, cfg model.HistoryConfig) ([]model.ResultRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	if cfg.Cause != model.EndNone {
		clauses = append(clauses, "end_cause = ?")
		args = append(args, string(cfg.Cause))
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT * FROM (
		SELECT id, session_id, started_at, ended_at, errors_found, wrong_attempts, time_remaining_ms, end_cause, empathy, creativity, problem_solving
		FROM results
		WHERE %s
		ORDER BY ended_at DESC, id DESC
		LIMIT ?
	) ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.ResultRecord
	for rows.Next() {
		var rec model.ResultRecord
		var startedAt, endedAt, cause string
		var remainingMs int64
		r := &rec.Result
		if err := rows.Scan(&rec.ID, &r.SessionID, &startedAt, &endedAt, &r.ErrorsFound, &r.WrongAttempts, &remainingMs, &cause,
			&r.Score.Empathy, &r.Score.Creativity, &r.Score.ProblemSolving); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		r.TimeRemaining = time.Duration(remainingMs) * time.Millisecond
		r.EndCause = model.EndCause(cause)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListDeliveries returns the delivery attempts of one session, oldest first.
func (s *Store) ListDeliveries(ctx context.Context, sessionID string) ([]model.DeliveryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, card_id, status, status_code, err, buffered, attempted_at
		 FROM deliveries
		 WHERE session_id = ?
		 ORDER BY attempted_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	return scanDeliveries(rows)
}

// LatestDeliveries returns the most recent delivery attempt for each of the
// given sessions. Sessions without attempts are absent from the map.
func (s *Store) LatestDeliveries(ctx context.Context, sessionIDs []string) (map[string]model.Outcome, error) {
	if len(sessionIDs) == 0 {
		return map[string]model.Outcome{}, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, session_id, card_id, status, status_code, err, buffered, attempted_at
		FROM deliveries
		WHERE session_id IN (%s)
		ORDER BY attempted_at ASC, id ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	records, err := scanDeliveries(rows)
	if err != nil {
		return nil, err
	}
	result := make(map[string]model.Outcome, len(records))
	for _, rec := range records {
		result[rec.Outcome.SessionID] = rec.Outcome
	}
	return result, nil
}

func scanDeliveries(rows *sql.Rows) ([]model.DeliveryRecord, error) {
	var records []model.DeliveryRecord
	for rows.Next() {
		var rec model.DeliveryRecord
		var status, attemptedAt string
		var buffered int
		o := &rec.Outcome
		if err := rows.Scan(&rec.ID, &o.SessionID, &o.CardID, &status, &o.StatusCode, &o.Err, &buffered, &attemptedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, attemptedAt)
		if err != nil {
			return nil, err
		}
		o.AttemptedAt = parsed
		o.Status = model.DeliveryStatus(status)
		o.Buffered = buffered != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

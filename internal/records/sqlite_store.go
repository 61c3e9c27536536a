package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/EJ-pro/Walky/internal/walk"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps walk records in a local file for single-node and development setups.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS walk_records (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			title         TEXT NOT NULL,
			mode          TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			ended_at_ms   INTEGER NOT NULL,
			duration_ms   INTEGER NOT NULL,
			distance_km   REAL NOT NULL,
			steps         INTEGER NOT NULL,
			calories      INTEGER NOT NULL,
			path          TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS walk_records_user_ended_idx ON walk_records (user_id, ended_at_ms DESC);
	`)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, rec walk.Record) error {
	path, err := json.Marshal(pathOrEmpty(rec.Path))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO walk_records
		(id, user_id, title, mode, started_at_ms, ended_at_ms, duration_ms, distance_km, steps, calories, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.Title,
		string(rec.Mode),
		rec.StartedAt.UnixMilli(),
		rec.EndedAt.UnixMilli(),
		rec.DurationMs,
		rec.DistanceKm,
		rec.Steps,
		rec.Calories,
		string(path),
	)
	return err
}

func (s *SQLiteStore) EndedBetween(ctx context.Context, userID string, from, to time.Time) ([]walk.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, mode, started_at_ms, ended_at_ms, duration_ms, distance_km, steps, calories, path
		FROM walk_records
		WHERE user_id = ? AND ended_at_ms >= ? AND ended_at_ms < ?
		ORDER BY ended_at_ms DESC`,
		userID, from.UnixMilli(), to.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	return scanSQLRecords(rows)
}

func (s *SQLiteStore) Recent(ctx context.Context, userID string, limit int) ([]walk.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, mode, started_at_ms, ended_at_ms, duration_ms, distance_km, steps, calories, path
		FROM walk_records
		WHERE user_id = ?
		ORDER BY ended_at_ms DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanSQLRecords(rows)
}

func scanSQLRecords(rows *sql.Rows) ([]walk.Record, error) {
	defer rows.Close()

	var out []walk.Record
	for rows.Next() {
		var (
			rec                walk.Record
			mode, path         string
			startedMs, endedMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &mode, &startedMs, &endedMs, &rec.DurationMs, &rec.DistanceKm, &rec.Steps, &rec.Calories, &path); err != nil {
			return nil, err
		}
		rec.Mode = walk.ParseMode(mode)
		rec.StartedAt = time.UnixMilli(startedMs).UTC()
		rec.EndedAt = time.UnixMilli(endedMs).UTC()
		if err := decodePath([]byte(path), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

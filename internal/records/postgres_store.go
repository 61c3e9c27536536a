package records

import (
	"context"
	"encoding/json"
	"time"

	"github.com/EJ-pro/Walky/internal/db"
	"github.com/EJ-pro/Walky/internal/walk"

	"github.com/jackc/pgx/v5"
)

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(db db.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec walk.Record) error {
	path, err := json.Marshal(pathOrEmpty(rec.Path))
	if err != nil {
		return err
	}
	// a retried finish carries the same id
	_, err = s.db.Exec(ctx, `
		INSERT INTO walk_records (id, user_id, title, mode, started_at, ended_at, duration_ms, distance_km, steps, calories, path)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.UserID, rec.Title, string(rec.Mode), rec.StartedAt, rec.EndedAt, rec.DurationMs, rec.DistanceKm, rec.Steps, rec.Calories, string(path))
	return err
}

func (s *PostgresStore) EndedBetween(ctx context.Context, userID string, from, to time.Time) ([]walk.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, mode, started_at, ended_at, duration_ms, distance_km, steps, calories, path
		FROM walk_records
		WHERE user_id=$1 AND ended_at >= $2 AND ended_at < $3
		ORDER BY ended_at DESC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *PostgresStore) Recent(ctx context.Context, userID string, limit int) ([]walk.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, mode, started_at, ended_at, duration_ms, distance_km, steps, calories, path
		FROM walk_records
		WHERE user_id=$1
		ORDER BY ended_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]walk.Record, error) {
	defer rows.Close()

	var out []walk.Record
	for rows.Next() {
		var (
			rec  walk.Record
			mode string
			path []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &mode, &rec.StartedAt, &rec.EndedAt, &rec.DurationMs, &rec.DistanceKm, &rec.Steps, &rec.Calories, &path); err != nil {
			return nil, err
		}
		rec.Mode = walk.ParseMode(mode)
		if err := decodePath(path, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodePath(raw []byte, rec *walk.Record) error {
	if len(raw) == 0 {
		rec.Path = []walk.PathPoint{}
		return nil
	}
	return json.Unmarshal(raw, &rec.Path)
}

func pathOrEmpty(path []walk.PathPoint) []walk.PathPoint {
	if path == nil {
		return []walk.PathPoint{}
	}
	return path
}

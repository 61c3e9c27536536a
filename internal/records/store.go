package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/EJ-pro/Walky/internal/db"
	"github.com/EJ-pro/Walky/internal/walk"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineMemory   = "memory"
)

var ErrUnsupportedEngine = errors.New("unsupported record store engine")

// Store is the append-only walk record collection, partitioned by user.
type Store interface {
	Append(ctx context.Context, rec walk.Record) error
	// EndedBetween returns records with from <= ended_at < to, newest first.
	EndedBetween(ctx context.Context, userID string, from, to time.Time) ([]walk.Record, error)
	Recent(ctx context.Context, userID string, limit int) ([]walk.Record, error)
}

func NewByEngine(engine string, q db.Querier, sqlitePath string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EnginePostgres:
		if q == nil {
			return nil, errors.New("postgres engine requires a connection")
		}
		return NewPostgresStore(q), nil
	case EngineSQLite:
		return NewSQLiteStore(sqlitePath)
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, ErrUnsupportedEngine
	}
}

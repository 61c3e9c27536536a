package health

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const totalTTL = 48 * time.Hour

// Totals holds the device-reported step total per walker per local day.
// Daily reports ok=false when the device has not published a total for the day.
type Totals interface {
	SetDaily(ctx context.Context, userID, day string, total int64) error
	Daily(ctx context.Context, userID, day string) (total int64, ok bool, err error)
}

type RedisTotals struct {
	redis *redis.Client
}

func NewRedisTotals(client *redis.Client) *RedisTotals {
	return &RedisTotals{redis: client}
}

func stepsKey(userID, day string) string {
	return "steps:" + userID + ":" + day
}

func (r *RedisTotals) SetDaily(ctx context.Context, userID, day string, total int64) error {
	return r.redis.Set(ctx, stepsKey(userID, day), total, totalTTL).Err()
}

func (r *RedisTotals) Daily(ctx context.Context, userID, day string) (int64, bool, error) {
	raw, err := r.redis.Get(ctx, stepsKey(userID, day)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return total, true, nil
}

// MemoryTotals is used when no redis is configured.
type MemoryTotals struct {
	mu     sync.RWMutex
	totals map[string]int64
}

func NewMemoryTotals() *MemoryTotals {
	return &MemoryTotals{totals: map[string]int64{}}
}

func (m *MemoryTotals) SetDaily(_ context.Context, userID, day string, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[stepsKey(userID, day)] = total
	return nil
}

func (m *MemoryTotals) Daily(_ context.Context, userID, day string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total, ok := m.totals[stepsKey(userID, day)]
	return total, ok, nil
}

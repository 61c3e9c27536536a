package rank

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/EJ-pro/Walky/internal/records"

	"github.com/redis/go-redis/v9"
)

type Service struct {
	store    records.Store
	redis    *redis.Client
	loc      *time.Location
	ttl      time.Duration
	lookback int
	now      func() time.Time
}

func NewService(store records.Store, redisClient *redis.Client, loc *time.Location, ttl time.Duration, lookbackDays int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if lookbackDays < WindowDays {
		lookbackDays = WindowDays
	}
	return &Service{
		store:    store,
		redis:    redisClient,
		loc:      loc,
		ttl:      ttl,
		lookback: lookbackDays,
		now:      time.Now,
	}
}

func (s *Service) cacheKey(userID string, now time.Time) string {
	return "rank:" + userID + ":" + now.In(s.loc).Format("2006-01-02")
}

// State returns the walker's rank, served from cache when possible.
func (s *Service) State(ctx context.Context, userID string) (State, error) {
	now := s.now()
	key := s.cacheKey(userID, now)

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached State
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Printf("rank cache read error: %v", err)
		}
	}

	end := records.StartOfDay(now, s.loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -s.lookback)
	recs, err := s.store.EndedBetween(ctx, userID, start, end)
	if err != nil {
		return State{}, err
	}
	state := Compute(recs, now, s.loc, s.lookback)

	if s.redis != nil && s.ttl > 0 {
		if payload, err := json.Marshal(state); err == nil {
			if err := s.redis.Set(ctx, key, payload, s.ttl).Err(); err != nil {
				log.Printf("rank cache write error: %v", err)
			}
		}
	}
	return state, nil
}

// Invalidate drops today's cached state after a new record lands.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.cacheKey(userID, s.now())).Err(); err != nil {
		log.Printf("rank cache invalidate error: %v", err)
	}
}

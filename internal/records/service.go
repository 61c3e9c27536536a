package records

import (
	"context"
	"time"

	"github.com/EJ-pro/Walky/internal/walk"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc, now: time.Now}
}

func (s *Service) Store() Store {
	return s.store
}

func (s *Service) Append(ctx context.Context, rec walk.Record) error {
	return s.store.Append(ctx, rec)
}

func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]RecentWalk, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	recs, err := s.store.Recent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RecentWalk, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RecentWalk{
			ID:          rec.ID,
			Title:       rec.Title,
			Mode:        rec.Mode,
			EndedAt:     rec.EndedAt.In(s.loc),
			DurationMin: int(EffectiveDuration(rec) / time.Minute),
			DistanceKm:  rec.DistanceKm,
			Steps:       rec.Steps,
			Calories:    rec.Calories,
		})
	}
	return out, nil
}

func (s *Service) Today(ctx context.Context, userID string) (DayTotals, error) {
	start := StartOfDay(s.now(), s.loc)
	recs, err := s.store.EndedBetween(ctx, userID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return DayTotals{}, err
	}
	totals := DayTotals{Date: start.Format("2006-01-02")}
	var dur time.Duration
	for _, rec := range recs {
		totals.Walks++
		totals.Steps += rec.Steps
		totals.Calories += rec.Calories
		totals.DistanceKm += rec.DistanceKm
		dur += EffectiveDuration(rec)
	}
	totals.Minutes = int(dur / time.Minute)
	return totals, nil
}

func (s *Service) Weekly(ctx context.Context, userID string) (WeeklySummary, error) {
	start := StartOfWeek(s.now(), s.loc)
	recs, err := s.store.EndedBetween(ctx, userID, start, start.AddDate(0, 0, 7))
	if err != nil {
		return WeeklySummary{}, err
	}
	summary := WeeklySummary{WeekStart: start.Format("2006-01-02")}
	var dur time.Duration
	for _, rec := range recs {
		summary.Walks++
		summary.DistanceKm += rec.DistanceKm
		dur += EffectiveDuration(rec)
	}
	summary.Minutes = int(dur / time.Minute)
	return summary, nil
}

// EffectiveDuration trusts the stored duration when it is in range and
// otherwise falls back to the record's wall-clock bounds.
func EffectiveDuration(rec walk.Record) time.Duration {
	raw := time.Duration(rec.DurationMs) * time.Millisecond
	if raw >= 0 && raw <= walk.MaxElapsed {
		return raw
	}
	if !rec.StartedAt.IsZero() && !rec.EndedAt.Before(rec.StartedAt) {
		bounds := rec.EndedAt.Sub(rec.StartedAt)
		if bounds > walk.MaxElapsed {
			return walk.MaxElapsed
		}
		return bounds
	}
	return 0
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns Monday 00:00 of t's week.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

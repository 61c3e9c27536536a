package records

import (
	"context"
	"testing"
	"time"

	"github.com/EJ-pro/Walky/internal/walk"
)

func seeded(t *testing.T, now time.Time) *Service {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	add := func(id, user string, ended time.Time, minutes, steps int, km float64) {
		dur := time.Duration(minutes) * time.Minute
		if err := store.Append(ctx, walk.Record{
			ID: id, UserID: user, Title: "Walk " + id, Mode: walk.ModeMy,
			StartedAt: ended.Add(-dur), EndedAt: ended, DurationMs: dur.Milliseconds(),
			Steps: steps, DistanceKm: km, Calories: int(km * 60),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// Friday 2024-05-10
	add("today-1", "walker-1", now.Add(-2*time.Hour), 30, 4000, 3.0)
	add("today-2", "walker-1", now.Add(-time.Hour), 15, 2000, 1.0)
	add("monday", "walker-1", time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC), 40, 5000, 3.5)
	add("last-week", "walker-1", time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC), 60, 9000, 6.0)
	add("other", "walker-2", now.Add(-time.Hour), 10, 100, 0.1)

	svc := NewService(store, time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func TestServiceToday(t *testing.T) {
	svc := seeded(t, time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC))
	totals, err := svc.Today(context.Background(), "walker-1")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if totals.Date != "2024-05-10" || totals.Walks != 2 || totals.Steps != 6000 || totals.Minutes != 45 || totals.Calories != 240 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.DistanceKm != 4.0 {
		t.Fatalf("unexpected distance %v", totals.DistanceKm)
	}
}

func TestServiceWeeklyStartsMonday(t *testing.T) {
	svc := seeded(t, time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC))
	summary, err := svc.Weekly(context.Background(), "walker-1")
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if summary.WeekStart != "2024-05-06" || summary.Walks != 3 || summary.Minutes != 85 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestServiceRecentLimits(t *testing.T) {
	svc := seeded(t, time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC))

	walks, err := svc.Recent(context.Background(), "walker-1", 0)
	if err != nil || len(walks) != 4 {
		t.Fatalf("expected 4 walks, got %d %v", len(walks), err)
	}
	if walks[0].ID != "today-2" || walks[0].DurationMin != 15 {
		t.Fatalf("unexpected first walk %+v", walks[0])
	}

	walks, _ = svc.Recent(context.Background(), "walker-1", 2)
	if len(walks) != 2 {
		t.Fatalf("expected limit 2, got %d", len(walks))
	}
	walks, _ = svc.Recent(context.Background(), "walker-1", 1000)
	if len(walks) != 4 {
		t.Fatalf("expected capped limit to still return all, got %d", len(walks))
	}
}

func TestEffectiveDuration(t *testing.T) {
	start := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		rec  walk.Record
		want time.Duration
	}{
		{"stored", walk.Record{DurationMs: 60000, StartedAt: start, EndedAt: start.Add(time.Hour)}, time.Minute},
		{"negative falls back", walk.Record{DurationMs: -1, StartedAt: start, EndedAt: start.Add(time.Hour)}, time.Hour},
		{"too long falls back", walk.Record{DurationMs: (40 * time.Hour).Milliseconds(), StartedAt: start, EndedAt: start.Add(2 * time.Hour)}, 2 * time.Hour},
		{"bounds clamped", walk.Record{DurationMs: -1, StartedAt: start, EndedAt: start.Add(48 * time.Hour)}, walk.MaxElapsed},
		{"nothing usable", walk.Record{DurationMs: -1, StartedAt: start, EndedAt: start.Add(-time.Hour)}, 0},
	}
	for _, tc := range cases {
		if got := EffectiveDuration(tc.rec); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestStartOfWeekSunday(t *testing.T) {
	sunday := time.Date(2024, 5, 12, 23, 0, 0, 0, time.UTC)
	if got := StartOfWeek(sunday, time.UTC); !got.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", got)
	}
}

func TestMemoryStoreDedupes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Append(ctx, walk.Record{ID: "a", UserID: "u", Title: "first"})
	_ = store.Append(ctx, walk.Record{ID: "a", UserID: "u", Title: "second"})
	recs, _ := store.Recent(ctx, "u", 0)
	if len(recs) != 1 || recs[0].Title != "first" {
		t.Fatalf("expected first write to win, got %+v", recs)
	}
}

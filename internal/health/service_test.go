package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fixedService(t *testing.T, now time.Time, loc *time.Location) *Service {
	t.Helper()
	svc := NewService(NewMemoryTotals(), loc)
	svc.now = func() time.Time { return now }
	return svc
}

func TestServiceUsesLocalDay(t *testing.T) {
	kst, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2024-05-04 23:30 UTC is already May 5th in Seoul
	svc := fixedService(t, time.Date(2024, 5, 4, 23, 30, 0, 0, time.UTC), kst)

	out, err := svc.Report(context.Background(), "walker-1", 1200)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if out.Date != "2024-05-05" || out.Total != 1200 {
		t.Fatalf("unexpected report %+v", out)
	}
	today, err := svc.Today(context.Background(), "walker-1")
	if err != nil || today.Total != 1200 {
		t.Fatalf("unexpected today %+v %v", today, err)
	}
}

func TestServiceRejectsNegative(t *testing.T) {
	svc := fixedService(t, time.Now(), nil)
	if _, err := svc.Report(context.Background(), "walker-1", -1); !errors.Is(err, ErrNegativeTotal) {
		t.Fatalf("expected negative total error, got %v", err)
	}
}

func TestPollerFeedsAndStops(t *testing.T) {
	svc := fixedService(t, time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC), time.UTC)
	_, _ = svc.Report(context.Background(), "walker-1", 300)

	poller := NewPoller(svc, 10*time.Millisecond)
	var (
		mu   sync.Mutex
		seen []int64
	)
	poller.Start("walker-1", func(_ context.Context, total int64) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, total)
		return nil
	})
	// second start for the same walker is ignored
	poller.Start("walker-1", func(context.Context, int64) error {
		t.Errorf("duplicate poller fed")
		return nil
	})
	if !poller.Running("walker-1") {
		t.Fatalf("expected poller running")
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2
	})
	_, _ = svc.Report(context.Background(), "walker-1", 450)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[len(seen)-1] == 450
	})

	poller.Stop("walker-1")
	if poller.Running("walker-1") {
		t.Fatalf("expected poller stopped")
	}
	mu.Lock()
	if seen[0] != 300 {
		t.Fatalf("expected first poll to read 300, got %d", seen[0])
	}
	mu.Unlock()
}

func TestPollerStopAll(t *testing.T) {
	svc := fixedService(t, time.Now(), time.UTC)
	_, _ = svc.Report(context.Background(), "a", 10)
	_, _ = svc.Report(context.Background(), "b", 20)
	poller := NewPoller(svc, 0)
	var calls atomic.Int32
	feed := func(context.Context, int64) error {
		calls.Add(1)
		return errors.New("session gone")
	}
	poller.Start("a", feed)
	poller.Start("b", feed)
	waitFor(t, func() bool { return calls.Load() >= 2 })

	poller.StopAll()
	if poller.Running("a") || poller.Running("b") {
		t.Fatalf("expected all pollers stopped")
	}
	poller.Stop("missing")
}

func TestPollerWaitsForFirstReport(t *testing.T) {
	svc := fixedService(t, time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC), time.UTC)
	poller := NewPoller(svc, 10*time.Millisecond)
	defer poller.StopAll()

	var (
		mu   sync.Mutex
		seen []int64
	)
	poller.Start("walker-1", func(_ context.Context, total int64) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, total)
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	if len(seen) != 0 {
		t.Fatalf("expected no feed before the device reports, got %v", seen)
	}
	mu.Unlock()

	_, _ = svc.Report(context.Background(), "walker-1", 8000)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	})
	mu.Lock()
	defer mu.Unlock()
	if seen[0] != 8000 {
		t.Fatalf("expected first feed to be the first report, got %d", seen[0])
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

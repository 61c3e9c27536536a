package health

import (
	"context"
	"errors"
	"time"
)

var ErrNegativeTotal = errors.New("step total must not be negative")

type Service struct {
	totals Totals
	loc    *time.Location
	now    func() time.Time
}

func NewService(totals Totals, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{totals: totals, loc: loc, now: time.Now}
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// Report stores the device's cumulative step total for today.
func (s *Service) Report(ctx context.Context, userID string, total int64) (DailySteps, error) {
	if total < 0 {
		return DailySteps{}, ErrNegativeTotal
	}
	day := s.today()
	if err := s.totals.SetDaily(ctx, userID, day, total); err != nil {
		return DailySteps{}, err
	}
	return DailySteps{Date: day, Total: total, Reported: true}, nil
}

func (s *Service) Today(ctx context.Context, userID string) (DailySteps, error) {
	day := s.today()
	total, ok, err := s.totals.Daily(ctx, userID, day)
	if err != nil {
		return DailySteps{}, err
	}
	return DailySteps{Date: day, Total: total, Reported: ok}, nil
}

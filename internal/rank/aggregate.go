package rank

import (
	"math"
	"time"

	"github.com/EJ-pro/Walky/internal/records"
	"github.com/EJ-pro/Walky/internal/walk"
)

// DailyAggregate is one local calendar day of finished walks.
type DailyAggregate struct {
	Day            time.Time
	TotalSteps     int
	TotalMinutes   int
	Sessions20Plus int
	HasPetSession  bool
}

func (d DailyAggregate) Score() int {
	return DailyScore(d.TotalSteps, d.TotalMinutes, d.Sessions20Plus)
}

func (d DailyAggregate) WeightedScore() float64 {
	return float64(d.Score()) * PetMultiplier(d.HasPetSession)
}

// Qualifies reports whether the day keeps a streak alive.
func (d DailyAggregate) Qualifies() bool {
	return d.Sessions20Plus > 0
}

// Aggregate groups recs by the local date of EndedAt into n consecutive days
// ending with today's date. The result is ordered oldest first.
func Aggregate(recs []walk.Record, today time.Time, loc *time.Location, n int) []DailyAggregate {
	end := records.StartOfDay(today, loc)
	first := end.AddDate(0, 0, -(n - 1))

	out := make([]DailyAggregate, n)
	index := make(map[string]int, n)
	for i := range out {
		day := first.AddDate(0, 0, i)
		out[i].Day = day
		index[day.Format("2006-01-02")] = i
	}

	for _, rec := range recs {
		i, ok := index[rec.EndedAt.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		minutes := rec.Minutes()
		out[i].TotalSteps += rec.Steps
		out[i].TotalMinutes += minutes
		if minutes >= sessionMins {
			out[i].Sessions20Plus++
		}
		if rec.Mode == walk.ModePet {
			out[i].HasPetSession = true
		}
	}
	return out
}

// Streak counts qualifying days backward from the last (today's) entry.
func Streak(days []DailyAggregate) int {
	streak := 0
	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].Qualifies() {
			break
		}
		streak++
	}
	return streak
}

type DayScore struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// State is the rank view of a walker.
type State struct {
	Progress
	TodayScore int        `json:"today_score"`
	StreakDays int        `json:"streak_days"`
	Breakdown  []DayScore `json:"breakdown"`
}

// Compute builds the rank state from the walker's records. lookbackDays bounds the
// streak search and is raised to the 14-day window when smaller.
func Compute(recs []walk.Record, now time.Time, loc *time.Location, lookbackDays int) State {
	if lookbackDays < WindowDays {
		lookbackDays = WindowDays
	}
	days := Aggregate(recs, now, loc, lookbackDays)
	window := days[len(days)-WindowDays:]
	streak := Streak(days)
	points := Points(window, streak)

	breakdown := make([]DayScore, 0, WindowDays)
	for _, d := range window {
		breakdown = append(breakdown, DayScore{
			Date:  d.Day.Format("2006-01-02"),
			Score: int(math.Floor(d.WeightedScore())),
		})
	}
	return State{
		Progress:   ProgressFor(points),
		TodayScore: breakdown[len(breakdown)-1].Score,
		StreakDays: streak,
		Breakdown:  breakdown,
	}
}

package rank

import "math"

const (
	DailyCap    = 2000
	WindowDays  = 14
	petBonus    = 1.05
	sessionMins = 20
)

type Tier string

const (
	Bronze   Tier = "BRONZE"
	Silver   Tier = "SILVER"
	Gold     Tier = "GOLD"
	Platinum Tier = "PLATINUM"
	Diamond  Tier = "DIAMOND"
	Master   Tier = "MASTER"
)

type tierThreshold struct {
	tier Tier
	min  int
}

// ascending by threshold
var tiers = []tierThreshold{
	{Bronze, 0},
	{Silver, 700},
	{Gold, 1400},
	{Platinum, 2100},
	{Diamond, 3200},
	{Master, 4700},
}

// Threshold is the minimum 14-day points of t.
func Threshold(t Tier) int {
	for _, tt := range tiers {
		if tt.tier == t {
			return tt.min
		}
	}
	return 0
}

// DailyScore scores one day of walking, capped at DailyCap.
func DailyScore(totalSteps, totalMinutes, sessions20 int) int {
	stepsBase := (totalSteps / 1000) * 10
	timeBase := int(math.Floor(float64(totalMinutes) * 0.5))
	sessionBase := sessions20 * 15
	multiSession := 0
	if sessions20 > 1 {
		multiSession = (sessions20 - 1) * 5
	}
	tenK := 0
	if totalSteps >= 10000 {
		tenK = 50
	}
	combo := 0
	if totalSteps >= 8000 && totalMinutes >= 40 {
		combo = 30
	}
	raw := stepsBase + timeBase + sessionBase + multiSession + tenK + combo
	if raw > DailyCap {
		return DailyCap
	}
	return raw
}

func PetMultiplier(hasPetSession bool) float64 {
	if hasPetSession {
		return petBonus
	}
	return 1.0
}

func StreakMultiplier(days int) float64 {
	switch {
	case days >= 30:
		return 1.20
	case days >= 14:
		return 1.10
	case days >= 7:
		return 1.05
	default:
		return 1.0
	}
}

// Points sums the pet-weighted daily scores and applies the streak multiplier once.
func Points(days []DailyAggregate, streak int) int {
	var sum float64
	for _, d := range days {
		sum += d.WeightedScore()
	}
	return int(math.Floor(sum * StreakMultiplier(streak)))
}

// TierFor returns the highest tier whose threshold is <= points.
func TierFor(points int) Tier {
	out := tiers[0].tier
	for _, tt := range tiers {
		if points >= tt.min {
			out = tt.tier
		}
	}
	return out
}

type Progress struct {
	Tier           Tier    `json:"tier"`
	Points14d      int     `json:"points_14d"`
	NextTier       *Tier   `json:"next_tier"`
	ToNext         int     `json:"to_next"`
	FractionToNext float64 `json:"fraction_to_next"`
}

func ProgressFor(points int) Progress {
	tier := TierFor(points)
	idx := 0
	for i, tt := range tiers {
		if tt.tier == tier {
			idx = i
		}
	}
	if idx == len(tiers)-1 {
		return Progress{Tier: tier, Points14d: points, ToNext: 0, FractionToNext: 1}
	}

	cur, next := tiers[idx], tiers[idx+1]
	nextTier := next.tier
	span := next.min - cur.min
	in := points - cur.min
	if in < 0 {
		in = 0
	}
	fraction := float64(in) / float64(span)
	if fraction > 1 {
		fraction = 1
	}
	toNext := next.min - points
	if toNext < 0 {
		toNext = 0
	}
	return Progress{
		Tier:           tier,
		Points14d:      points,
		NextTier:       &nextTier,
		ToNext:         toNext,
		FractionToNext: fraction,
	}
}

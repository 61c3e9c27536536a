package records

import (
	"time"

	"github.com/EJ-pro/Walky/internal/walk"
)

type RecentWalk struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Mode        walk.Mode `json:"mode"`
	EndedAt     time.Time `json:"ended_at"`
	DurationMin int       `json:"duration_min"`
	DistanceKm  float64   `json:"distance_km"`
	Steps       int       `json:"steps"`
	Calories    int       `json:"calories"`
}

type DayTotals struct {
	Date       string  `json:"date"`
	Walks      int     `json:"walks"`
	Steps      int     `json:"steps"`
	DistanceKm float64 `json:"distance_km"`
	Minutes    int     `json:"minutes"`
	Calories   int     `json:"calories"`
}

type WeeklySummary struct {
	WeekStart  string  `json:"week_start"`
	Walks      int     `json:"walks"`
	DistanceKm float64 `json:"distance_km"`
	Minutes    int     `json:"minutes"`
}

package walk

import (
	"strings"
	"time"
)

type Mode string

const (
	ModeMy  Mode = "MY"
	ModePet Mode = "PET"
)

// ParseMode maps client input to a Mode. Anything other than PET is a regular walk.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModePet)) {
		return ModePet
	}
	return ModeMy
}

// StepSource selects where a session's step count comes from.
type StepSource string

const (
	StepsFromDistance StepSource = "distance"
	StepsFromSensor   StepSource = "sensor"
	StepsFromHealth   StepSource = "health"
)

func ParseStepSource(s string) StepSource {
	switch StepSource(strings.ToLower(strings.TrimSpace(s))) {
	case StepsFromSensor:
		return StepsFromSensor
	case StepsFromHealth:
		return StepsFromHealth
	default:
		return StepsFromDistance
	}
}

type State string

const (
	StateIdle    State = "idle"
	StateStarted State = "started"
	StatePaused  State = "paused"
)

// Sample is a single location fix as delivered by the device.
type Sample struct {
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng" validate:"gte=-180,lte=180"`
	TimestampMs int64   `json:"timestamp_ms" validate:"required"`
	AccuracyM   float64 `json:"accuracy_m" validate:"gte=0"`
}

type PathPoint struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Record is a finished walk. It is written once and never updated.
type Record struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Title      string      `json:"title"`
	Mode       Mode        `json:"mode"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    time.Time   `json:"ended_at"`
	DurationMs int64       `json:"duration_ms"`
	DistanceKm float64     `json:"distance_km"`
	Steps      int         `json:"steps"`
	Calories   int         `json:"calories"`
	Path       []PathPoint `json:"path"`
}

// Minutes is the whole number of minutes walked.
func (r Record) Minutes() int {
	return int(r.DurationMs / int64(time.Minute/time.Millisecond))
}

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	SessionID  string      `json:"session_id,omitempty"`
	State      State       `json:"state"`
	Mode       Mode        `json:"mode,omitempty"`
	StepSource StepSource  `json:"step_source,omitempty"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	ElapsedMs  int64       `json:"elapsed_ms"`
	DistanceKm float64     `json:"distance_km"`
	Steps      int         `json:"steps"`
	Calories   int         `json:"calories"`
	Path       []PathPoint `json:"path"`
}

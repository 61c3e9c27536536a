package walk

import (
	"time"

	"github.com/EJ-pro/Walky/internal/shared/geo"
)

const (
	MaxAccuracyM     = 25.0
	MaxSpeedMps      = 3.0
	MinDisplacementM = 3.0
	KcalPerKm        = 60.0
	StrideM          = 0.78
	MaxElapsed       = 36 * time.Hour
)

// Reject explains why a sample was dropped. RejectNone means it was accepted.
type Reject string

const (
	RejectNone     Reject = ""
	RejectAccuracy Reject = "accuracy"
	RejectElapsed  Reject = "elapsed"
	RejectSpeed    Reject = "speed"
	RejectJitter   Reject = "jitter"
)

// Check applies the plausibility filter to next relative to the previously accepted sample
// and returns the displacement in meters.
func Check(prev, next Sample) (float64, Reject) {
	distM := geo.HaversineM(prev.Lat, prev.Lng, next.Lat, next.Lng)
	elapsed := float64(next.TimestampMs-prev.TimestampMs) / 1000

	switch {
	case next.AccuracyM > MaxAccuracyM:
		return distM, RejectAccuracy
	case elapsed <= 0:
		return distM, RejectElapsed
	case distM/elapsed > MaxSpeedMps:
		return distM, RejectSpeed
	case distM < MinDisplacementM:
		return distM, RejectJitter
	}
	return distM, RejectNone
}

func caloriesFor(distanceKm float64) int {
	return int(distanceKm * KcalPerKm)
}

func stepsFor(distanceKm float64) int {
	return int(distanceKm * 1000 / StrideM)
}

package walk

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotStarted = errors.New("walk session not started")

// Session accumulates one walk. It is not safe for concurrent use; Tracker
// serializes access to it.
type Session struct {
	now func() time.Time
	loc *time.Location

	id                string
	mode              Mode
	source            StepSource
	started           bool
	paused            bool
	startedAt         time.Time
	pausedAccumulated time.Duration
	lastPauseAt       time.Time

	path       []PathPoint
	last       *Sample
	distanceKm float64
	steps      int
	calories   int
	baseline   *int64
}

func NewSession(now func() time.Time, loc *time.Location) *Session {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Session{now: now, loc: loc}
}

func (s *Session) State() State {
	switch {
	case !s.started:
		return StateIdle
	case s.paused:
		return StatePaused
	default:
		return StateStarted
	}
}

// RecordStartLocation anchors the path at the walker's position. It can be
// repeated until the first GPS sample has been accepted. The anchor carries the
// server's clock, so the first device fix after it is taken as the first
// sample rather than measured against it.
func (s *Session) RecordStartLocation(lat, lng float64) bool {
	if s.last != nil {
		return false
	}
	ts := s.now().UnixMilli()
	if s.started {
		ts = s.startedAt.UnixMilli()
	}
	s.path = []PathPoint{{Lat: lat, Lng: lng, TimestampMs: ts}}
	return true
}

func (s *Session) Start(mode Mode, source StepSource) bool {
	if s.started {
		return false
	}
	if source == "" {
		source = StepsFromDistance
	}
	s.id = uuid.NewString()
	s.mode = mode
	s.source = source
	s.started = true
	s.startedAt = s.now()

	if s.last == nil && len(s.path) == 1 {
		s.path[0].TimestampMs = s.startedAt.UnixMilli()
	}
	return true
}

// TogglePause pauses a running walk or resumes a paused one.
func (s *Session) TogglePause() bool {
	if !s.started {
		return false
	}
	now := s.now()
	if s.paused {
		if d := now.Sub(s.lastPauseAt); d > 0 {
			s.pausedAccumulated += d
		}
		s.paused = false
		return true
	}
	s.paused = true
	s.lastPauseAt = now
	return true
}

// OnLocationSample reports whether the sample was accepted into the path.
func (s *Session) OnLocationSample(sample Sample) bool {
	if !s.started || s.paused {
		return false
	}
	if s.last == nil {
		s.accept(sample, 0)
		return true
	}
	distM, reject := Check(*s.last, sample)
	if reject != RejectNone {
		return false
	}
	s.accept(sample, distM)
	return true
}

func (s *Session) accept(sample Sample, distM float64) {
	s.path = append(s.path, PathPoint{Lat: sample.Lat, Lng: sample.Lng, TimestampMs: sample.TimestampMs})
	last := sample
	s.last = &last
	if distM == 0 {
		return
	}
	s.distanceKm += distM / 1000
	s.calories = caloriesFor(s.distanceKm)
	if s.source == StepsFromDistance {
		s.steps = stepsFor(s.distanceKm)
	}
}

func (s *Session) OnSensorSteps(cumulative int64) bool {
	return s.onCounter(StepsFromSensor, cumulative)
}

func (s *Session) OnHealthTotal(total int64) bool {
	return s.onCounter(StepsFromHealth, total)
}

func (s *Session) onCounter(kind StepSource, value int64) bool {
	if !s.started {
		return false
	}
	switch s.source {
	case kind:
		if s.baseline == nil {
			b := value
			s.baseline = &b
		}
	case StepsFromDistance:
		// promoted for the rest of the session; keep the steps already estimated
		s.source = kind
		b := value - int64(s.steps)
		s.baseline = &b
	default:
		return false
	}
	steps := value - *s.baseline
	if steps < 0 {
		steps = 0
	}
	s.steps = int(steps)
	return true
}

func (s *Session) Elapsed() time.Duration {
	return s.elapsedAt(s.now())
}

func (s *Session) elapsedAt(now time.Time) time.Duration {
	if !s.started {
		return 0
	}
	d := now.Sub(s.startedAt) - s.pausedAccumulated
	if s.paused {
		d -= now.Sub(s.lastPauseAt)
	}
	if d < 0 {
		return 0
	}
	if d > MaxElapsed {
		return MaxElapsed
	}
	return d
}

// Summary freezes the accumulators into a record without ending the walk.
func (s *Session) Summary() (Record, error) {
	if !s.started || s.startedAt.IsZero() {
		return Record{}, ErrNotStarted
	}
	end := s.now()
	path := make([]PathPoint, len(s.path))
	copy(path, s.path)
	return Record{
		ID:         s.id,
		Title:      s.title(end),
		Mode:       s.mode,
		StartedAt:  s.startedAt,
		EndedAt:    end,
		DurationMs: s.elapsedAt(end).Milliseconds(),
		DistanceKm: s.distanceKm,
		Steps:      s.steps,
		Calories:   s.calories,
		Path:       path,
	}, nil
}

// Finish returns the record and resets the session to idle.
func (s *Session) Finish() (Record, error) {
	rec, err := s.Summary()
	if err != nil {
		return Record{}, err
	}
	s.Discard()
	return rec, nil
}

func (s *Session) Discard() {
	*s = Session{now: s.now, loc: s.loc}
}

func (s *Session) Snapshot() Snapshot {
	path := make([]PathPoint, len(s.path))
	copy(path, s.path)
	snap := Snapshot{
		SessionID:  s.id,
		State:      s.State(),
		Mode:       s.mode,
		StepSource: s.source,
		ElapsedMs:  s.Elapsed().Milliseconds(),
		DistanceKm: s.distanceKm,
		Steps:      s.steps,
		Calories:   s.calories,
		Path:       path,
	}
	if s.started {
		startedAt := s.startedAt
		snap.StartedAt = &startedAt
	}
	return snap
}

func (s *Session) title(end time.Time) string {
	return fmt.Sprintf("Walk %s - %s", s.startedAt.In(s.loc).Format("15:04"), end.In(s.loc).Format("15:04"))
}

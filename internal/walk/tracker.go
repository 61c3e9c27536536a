package walk

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrTrackerClosed = errors.New("walk tracker closed")

// Publisher receives every snapshot a tracker produces.
type Publisher interface {
	Publish(userID string, snap Snapshot)
}

// PersistFunc stores a finished record. The session is reset only when it returns nil.
type PersistFunc func(ctx context.Context, rec Record) error

// Tracker owns a Session and applies all events to it on a single goroutine.
// Location callbacks, step counters, pollers and HTTP handlers all go through it.
type Tracker struct {
	userID  string
	session *Session
	pub     Publisher
	tick    time.Duration

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewTracker starts the event loop. A positive tick republishes the snapshot
// while walking so clients can refresh the elapsed time.
func NewTracker(userID string, session *Session, pub Publisher, tick time.Duration) *Tracker {
	t := &Tracker{
		userID:  userID,
		session: session,
		pub:     pub,
		tick:    tick,
		cmds:    make(chan func(), 64),
		done:    make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *Tracker) UserID() string {
	return t.userID
}

func (t *Tracker) loop() {
	var tickC <-chan time.Time
	if t.tick > 0 {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()
		tickC = ticker.C
	}
	for {
		select {
		case fn := <-t.cmds:
			fn()
		case <-tickC:
			if t.session.State() == StateStarted {
				t.publish()
			}
		case <-t.done:
			return
		}
	}
}

func (t *Tracker) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *Tracker) do(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	select {
	case t.cmds <- func() { fn(); close(reply) }:
	case <-t.done:
		return ErrTrackerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-t.done:
		return ErrTrackerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) publish() {
	if t.pub != nil {
		t.pub.Publish(t.userID, t.session.Snapshot())
	}
}

// mutate applies fn and publishes the resulting snapshot when fn reports a change.
func (t *Tracker) mutate(ctx context.Context, fn func(*Session) bool) (Snapshot, error) {
	var snap Snapshot
	err := t.do(ctx, func() {
		if fn(t.session) {
			t.publish()
		}
		snap = t.session.Snapshot()
	})
	return snap, err
}

func (t *Tracker) RecordStartLocation(ctx context.Context, lat, lng float64) (Snapshot, error) {
	return t.mutate(ctx, func(s *Session) bool { return s.RecordStartLocation(lat, lng) })
}

func (t *Tracker) Start(ctx context.Context, mode Mode, source StepSource) (Snapshot, error) {
	return t.mutate(ctx, func(s *Session) bool { return s.Start(mode, source) })
}

func (t *Tracker) TogglePause(ctx context.Context) (Snapshot, error) {
	return t.mutate(ctx, func(s *Session) bool { return s.TogglePause() })
}

// Samples applies a batch of location fixes in delivery order and reports how many were accepted.
func (t *Tracker) Samples(ctx context.Context, samples []Sample) (int, Snapshot, error) {
	accepted := 0
	snap, err := t.mutate(ctx, func(s *Session) bool {
		for _, sm := range samples {
			if s.OnLocationSample(sm) {
				accepted++
			}
		}
		return accepted > 0
	})
	return accepted, snap, err
}

func (t *Tracker) SensorSteps(ctx context.Context, cumulative int64) (Snapshot, error) {
	return t.mutate(ctx, func(s *Session) bool { return s.OnSensorSteps(cumulative) })
}

func (t *Tracker) HealthTotal(ctx context.Context, total int64) (Snapshot, error) {
	return t.mutate(ctx, func(s *Session) bool { return s.OnHealthTotal(total) })
}

func (t *Tracker) Discard(ctx context.Context) (Snapshot, error) {
	return t.mutate(ctx, func(s *Session) bool {
		was := s.State() != StateIdle
		s.Discard()
		return was
	})
}

func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	return t.mutate(ctx, func(*Session) bool { return false })
}

func (t *Tracker) StepSource(ctx context.Context) (StepSource, error) {
	var src StepSource
	err := t.do(ctx, func() { src = t.session.source })
	return src, err
}

// Finish persists the walk and resets the session. When persist fails the
// session keeps running so the caller can retry.
func (t *Tracker) Finish(ctx context.Context, persist PersistFunc) (Record, error) {
	var (
		rec    Record
		runErr error
	)
	err := t.do(ctx, func() {
		rec, runErr = t.session.Summary()
		if runErr != nil {
			return
		}
		rec.UserID = t.userID
		if persist != nil {
			if runErr = persist(ctx, rec); runErr != nil {
				return
			}
		}
		t.session.Discard()
		t.publish()
	})
	if err != nil {
		return Record{}, err
	}
	if runErr != nil {
		return Record{}, runErr
	}
	return rec, nil
}

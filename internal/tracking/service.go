package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/EJ-pro/Walky/internal/health"
	"github.com/EJ-pro/Walky/internal/walk"
)

var (
	ErrNoSession = errors.New("no live walk session")
	ErrPersist   = errors.New("walk record not saved")
)

// Recorder stores finished walks.
type Recorder interface {
	Append(ctx context.Context, rec walk.Record) error
}

type RankInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type HealthPoller interface {
	Start(userID string, feed health.FeedFunc)
	Stop(userID string)
}

type Options struct {
	Recorder  Recorder
	Publisher walk.Publisher
	Rank      RankInvalidator
	Poller    HealthPoller
	Location  *time.Location
	// Tick republishes a walking session's snapshot so clients can refresh the timer.
	Tick time.Duration
}

// Service keeps one walk.Tracker per walker.
type Service struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	trackers map[string]*walk.Tracker
	// anchors holds start locations of walkers who have not started yet
	anchors map[string]walk.PathPoint
}

func NewService(opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		opts:     opts,
		now:      time.Now,
		trackers: map[string]*walk.Tracker{},
		anchors:  map[string]walk.PathPoint{},
	}
}

func (s *Service) tracker(userID string) *walk.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[userID]; ok {
		return t
	}
	t := walk.NewTracker(userID, walk.NewSession(s.now, s.opts.Location), s.opts.Publisher, s.opts.Tick)
	s.trackers[userID] = t
	return t
}

func (s *Service) takeAnchor(userID string) (walk.PathPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.anchors[userID]
	delete(s.anchors, userID)
	return a, ok
}

func (s *Service) pendingAnchor(userID string) (walk.PathPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.anchors[userID]
	return a, ok
}

func idleSnapshot(path ...walk.PathPoint) walk.Snapshot {
	if path == nil {
		path = []walk.PathPoint{}
	}
	return walk.Snapshot{State: walk.StateIdle, Path: path}
}

func (s *Service) existing(userID string) (*walk.Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return t, nil
}

// release drops the walker's tracker once their walk is over.
func (s *Service) release(userID string, t *walk.Tracker) {
	if s.opts.Poller != nil {
		s.opts.Poller.Stop(userID)
	}
	s.mu.Lock()
	if s.trackers[userID] == t {
		delete(s.trackers, userID)
	}
	s.mu.Unlock()
	t.Close()
}

func mapErr(err error) error {
	if errors.Is(err, walk.ErrTrackerClosed) {
		return ErrNoSession
	}
	return err
}

// StartLocation records where the walk will begin. Before Start no tracker is
// running; the anchor is held until the walk starts or is discarded.
func (s *Service) StartLocation(ctx context.Context, userID string, lat, lng float64) (walk.Snapshot, error) {
	if t, err := s.existing(userID); err == nil {
		snap, err := t.RecordStartLocation(ctx, lat, lng)
		return snap, mapErr(err)
	}
	anchor := walk.PathPoint{Lat: lat, Lng: lng, TimestampMs: s.now().UnixMilli()}
	s.mu.Lock()
	s.anchors[userID] = anchor
	s.mu.Unlock()
	return idleSnapshot(anchor), nil
}

func (s *Service) Start(ctx context.Context, userID string, mode walk.Mode, source walk.StepSource) (walk.Snapshot, error) {
	t := s.tracker(userID)
	if anchor, ok := s.takeAnchor(userID); ok {
		if _, err := t.RecordStartLocation(ctx, anchor.Lat, anchor.Lng); err != nil {
			return walk.Snapshot{}, mapErr(err)
		}
	}
	snap, err := t.Start(ctx, mode, source)
	if err != nil {
		return walk.Snapshot{}, mapErr(err)
	}
	if snap.StepSource == walk.StepsFromHealth && s.opts.Poller != nil {
		s.opts.Poller.Start(userID, func(ctx context.Context, total int64) error {
			_, err := t.HealthTotal(ctx, total)
			return err
		})
	}
	return snap, nil
}

func (s *Service) TogglePause(ctx context.Context, userID string) (walk.Snapshot, error) {
	t, err := s.existing(userID)
	if err != nil {
		return walk.Snapshot{}, err
	}
	snap, err := t.TogglePause(ctx)
	return snap, mapErr(err)
}

func (s *Service) Samples(ctx context.Context, userID string, samples []walk.Sample) (int, walk.Snapshot, error) {
	t, err := s.existing(userID)
	if err != nil {
		return 0, walk.Snapshot{}, err
	}
	accepted, snap, err := t.Samples(ctx, samples)
	return accepted, snap, mapErr(err)
}

func (s *Service) SensorSteps(ctx context.Context, userID string, cumulative int64) (walk.Snapshot, error) {
	t, err := s.existing(userID)
	if err != nil {
		return walk.Snapshot{}, err
	}
	snap, err := t.SensorSteps(ctx, cumulative)
	return snap, mapErr(err)
}

// Finish persists the walk and ends the session. When the record cannot be
// stored the session keeps running and ErrPersist is returned.
func (s *Service) Finish(ctx context.Context, userID string) (walk.Record, error) {
	t, err := s.existing(userID)
	if err != nil {
		if _, ok := s.pendingAnchor(userID); ok {
			return walk.Record{}, walk.ErrNotStarted
		}
		return walk.Record{}, err
	}
	rec, err := t.Finish(ctx, func(ctx context.Context, rec walk.Record) error {
		if s.opts.Recorder == nil {
			return nil
		}
		if err := s.opts.Recorder.Append(ctx, rec); err != nil {
			return fmt.Errorf("%w: %v", ErrPersist, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPersist) {
			log.Printf("walk for %s not saved: %v", userID, err)
		}
		return walk.Record{}, mapErr(err)
	}

	s.release(userID, t)
	if s.opts.Rank != nil {
		s.opts.Rank.Invalidate(ctx, userID)
	}
	return rec, nil
}

func (s *Service) Discard(ctx context.Context, userID string) (walk.Snapshot, error) {
	t, err := s.existing(userID)
	if err != nil {
		if _, ok := s.takeAnchor(userID); ok {
			return idleSnapshot(), nil
		}
		return walk.Snapshot{}, err
	}
	snap, err := t.Discard(ctx)
	if err != nil {
		return walk.Snapshot{}, mapErr(err)
	}
	s.release(userID, t)
	return snap, nil
}

// Snapshot reports an idle snapshot for walkers without a live session.
func (s *Service) Snapshot(ctx context.Context, userID string) (walk.Snapshot, error) {
	t, err := s.existing(userID)
	if err != nil {
		if anchor, ok := s.pendingAnchor(userID); ok {
			return idleSnapshot(anchor), nil
		}
		return idleSnapshot(), nil
	}
	snap, err := t.Snapshot(ctx)
	if errors.Is(err, walk.ErrTrackerClosed) {
		return idleSnapshot(), nil
	}
	return snap, err
}

func (s *Service) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackers)
}

// Close stops every tracker. Unfinished walks are dropped.
func (s *Service) Close() {
	s.mu.Lock()
	trackers := s.trackers
	s.trackers = map[string]*walk.Tracker{}
	s.anchors = map[string]walk.PathPoint{}
	s.mu.Unlock()

	for userID, t := range trackers {
		if s.opts.Poller != nil {
			s.opts.Poller.Stop(userID)
		}
		t.Close()
	}
}

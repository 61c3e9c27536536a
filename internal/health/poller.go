package health

import (
	"context"
	"log"
	"sync"
	"time"
)

// FeedFunc receives each polled daily total.
type FeedFunc func(ctx context.Context, total int64) error

// Poller periodically reads a walker's daily total and feeds it to their live session.
type Poller struct {
	svc      *Service
	interval time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewPoller(svc *Service, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{svc: svc, interval: interval, running: map[string]context.CancelFunc{}}
}

// Start polls immediately and then on every interval until Stop. Starting an
// already polled walker is a no-op.
func (p *Poller) Start(userID string, feed FeedFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.running[userID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running[userID] = cancel
	go p.run(ctx, userID, feed)
}

func (p *Poller) Stop(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.running[userID]; ok {
		cancel()
		delete(p.running, userID)
	}
}

func (p *Poller) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, cancel := range p.running {
		cancel()
		delete(p.running, userID)
	}
}

func (p *Poller) Running(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.running[userID]
	return ok
}

func (p *Poller) run(ctx context.Context, userID string, feed FeedFunc) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx, userID, feed)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, userID string, feed FeedFunc) {
	today, err := p.svc.Today(ctx, userID)
	if err != nil {
		log.Printf("health poll for %s failed: %v", userID, err)
		return
	}
	// nothing reported yet; the first real total becomes the session baseline
	if !today.Reported {
		return
	}
	if err := feed(ctx, today.Total); err != nil && ctx.Err() == nil {
		log.Printf("health feed for %s failed: %v", userID, err)
	}
}

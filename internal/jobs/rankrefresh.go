package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher recomputes cached rankings; submission.Service implements it.
type Refresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// RankRefresher keeps stored aggregate rankings warm on a fixed interval.
type RankRefresher struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	timeout   time.Duration

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func NewRankRefresher(target Refresher, interval time.Duration) *RankRefresher {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &RankRefresher{
		scheduler: s,
		target:    target,
		interval:  interval,
		timeout:   time.Minute,
	}
}

// Start schedules the refresh and returns immediately. A zero interval disables it.
func (r *RankRefresher) Start() error {
	if r.interval <= 0 {
		log.Printf("rank refresh disabled")
		return nil
	}
	if _, err := r.scheduler.Every(r.interval).Do(r.RunOnce); err != nil {
		return err
	}
	r.scheduler.StartAsync()
	log.Printf("rank refresh every %s", r.interval)
	return nil
}

func (r *RankRefresher) Stop() {
	if r.scheduler.IsRunning() {
		r.scheduler.Stop()
	}
}

// RunOnce performs one refresh pass.
func (r *RankRefresher) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.target.RefreshAll(ctx)
	if err != nil {
		log.Printf("rank refresh: %d papers refreshed, errors: %v", n, err)
	}

	r.mu.Lock()
	r.lastRun, r.lastErr = time.Now(), err
	r.mu.Unlock()
}

// LastRun reports when the previous pass finished and how it ended.
func (r *RankRefresher) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}

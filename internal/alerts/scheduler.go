package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval is the cadence used when none is configured. Ticks are
// deduplicated per calendar hour, so a short interval only makes sure one
// of them lands inside the alert hour.
const DefaultInterval = time.Minute

// Scheduler owns the periodic dispatch task. Passes never overlap: a slow
// pass delays the next one instead of running alongside it.
type Scheduler struct {
	dispatcher *Dispatcher
	interval   time.Duration

	mu       sync.Mutex
	lastHour string
}

// NewScheduler creates a scheduler that ticks every interval.
func NewScheduler(dispatcher *Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{dispatcher: dispatcher, interval: interval}
}

// Run ticks until ctx is done. The first pass happens immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Msg("alert scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("alert scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	if err := s.Tick(ctx); err != nil {
		log.Error().Err(err).Msg("alert pass finished with errors")
	}
}

// Tick runs a gated pass, at most once per calendar hour.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.dispatcher.Now()
	hour := now.Format("2006-01-02T15")
	if hour == s.lastHour {
		return nil
	}
	s.lastHour = hour
	return s.dispatcher.dispatchAt(ctx, now, false)
}

// Force runs a pass immediately, ignoring the alert hour. It still waits
// for any running pass to finish.
func (s *Scheduler) Force(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatcher.dispatchAt(ctx, s.dispatcher.Now(), true)
}

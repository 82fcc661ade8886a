package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/infra"
	"github.com/iamwavecut/ngmod/internal/observability"
)

// Sweeper periodically drops flood and slowmode state for users who went quiet.
type Sweeper struct {
	flood    *FloodDetector
	slowmode *SlowmodeTracker
	every    time.Duration
	idle     time.Duration

	runMutex sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweeper(flood *FloodDetector, slowmode *SlowmodeTracker, every, idle time.Duration) *Sweeper {
	if every <= 0 {
		every = time.Minute
	}
	if idle < StaleThreshold {
		idle = StaleThreshold
	}
	return &Sweeper{
		flood:    flood,
		slowmode: slowmode,
		every:    every,
		idle:     idle,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				func() {
					defer infra.RecoverPanic("sweeper")
					s.Sweep()
				}()
			}
		}
	}(s.done)
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMutex.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep runs one cleanup pass and reports the remaining tracked keys. Slowmode marks
// are kept for at least the longest allowed interval.
func (s *Sweeper) Sweep() {
	floods := s.flood.Sweep(s.idle)
	slows := s.slowmode.Sweep(max(s.idle, time.Duration(db.MaxSlowmodeSeconds)*time.Second))
	observability.SetTracked("flood", s.flood.Size())
	observability.SetTracked("slowmode", s.slowmode.Size())
	if floods+slows > 0 {
		log.WithFields(log.Fields{
			"object":   "Sweeper",
			"flood":    floods,
			"slowmode": slows,
		}).Debug("swept idle activity state")
	}
}

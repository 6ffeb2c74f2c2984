package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/go-demo/roomchat/internal/pkg/clock"
)

// DefaultSweepInterval is how often expired rooms are collected.
const DefaultSweepInterval = 60 * time.Second

// SweepExpired deletes every non-general room that is empty and has
// outlived its duration. Occupied rooms are never touched. It returns the
// number of rooms deleted.
func (s *Service) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	deleted := 0
	for _, room := range s.rooms {
		if room.general || !room.IsEmpty() || !room.Expired(now) {
			continue
		}
		s.deleteRoomLocked(room, "expired")
		deleted++
	}
	return deleted
}

// Sweeper calls SweepExpired on a fixed interval.
type Sweeper struct {
	service  *Service
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// NewSweeper creates a sweeper for service. A non-positive interval means
// DefaultSweepInterval.
func NewSweeper(service *Service, interval time.Duration, clk clock.Clock, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}
}

// Run sweeps until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Room sweeper started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Room sweeper stopped")
			return
		case <-ticker.C:
			if n := w.service.SweepExpired(); n > 0 {
				w.logger.Info("Expired rooms removed", zap.Int("count", n))
			}
		}
	}
}

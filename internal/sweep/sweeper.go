// internal/sweep/sweeper.go
package sweep

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gameroom/internal/journal"
	"gameroom/internal/room"
)

const (
	DefaultInterval     = 60 * time.Second
	DefaultInitialDelay = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Minute
)

// SessionTeardown is the sweep-facing slice of the connection session
// registry: evicting a room cascades into its live connections.
type SessionTeardown interface {
	TeardownRoom(code string)
}

// Sweeper periodically evicts rooms inactive beyond IdleTimeout. The scan
// runs under the room registry lock; teardown (which closes connections)
// runs outside it.
type Sweeper struct {
	Rooms    *room.Registry
	Sessions SessionTeardown

	Interval     time.Duration
	InitialDelay time.Duration
	IdleTimeout  time.Duration

	Logger *logrus.Logger
}

// Run blocks until ctx is cancelled, sweeping once per interval after the
// initial delay. Typically launched as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	delay := s.InitialDelay
	if delay <= 0 {
		delay = DefaultInitialDelay
	}

	s.Logger.Info("room sweep scheduled")

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	window := s.IdleTimeout
	if window <= 0 {
		window = DefaultIdleTimeout
	}

	expired := s.Rooms.ExpiredRooms(window)
	if len(expired) == 0 {
		return
	}

	for _, code := range expired {
		s.Rooms.Evict(code)
		s.Sessions.TeardownRoom(code)
		if err := journal.Publish(ctx, journal.Record{Code: code, Event: "room_expired"}); err != nil {
			s.Logger.WithError(err).Warn("journal publish failed")
		}
	}
	s.Logger.WithField("codes", expired).Infof("removed %d rooms because of inactivity", len(expired))
}

// Package jobs holds the bot's scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweeper once a minute.
const DefaultSchedule = "@every 1m"

// Sweeper resets sessions abandoned for longer than the idle timeout, so
// carts, stale locks and queued messages do not linger until the customer returns.
type Sweeper struct {
	sessions *session.Manager
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

// NewSweeper creates a sweeper over the manager's store.
func NewSweeper(sessions *session.Manager, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{
		sessions: sessions,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger.With("component", "session_sweeper"),
	}
}

// Start schedules the sweep.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx := context.Background()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Session sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Session sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Session sweeper stopped")
}

// Sweep expires every idle session once and returns how many were reset.
// A failure on one session does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	var expired, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		ok, err := s.sessions.Expire(ctx, id)
		if err != nil {
			failed++
			s.logger.Warn("Failed to expire session", "session_id", id, "err", err)
			continue
		}
		if ok {
			expired++
		}
	}
	if expired > 0 || failed > 0 {
		s.logger.Info("Session sweep finished", "scanned", len(ids), "expired", expired, "failed", failed)
	}
	return expired, nil
}

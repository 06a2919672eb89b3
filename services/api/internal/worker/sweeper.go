// Package worker runs the server-side background jobs.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
)

// Expirer applies overdue expiry transitions in batches.
type Expirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// ExpirySweeper periodically expires bookings whose owner-response or payment
// deadline has passed. Reads expire lazily too; the sweeper makes sure
// nobody has to look at a booking for it to expire.
type ExpirySweeper struct {
	expirer  Expirer
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewExpirySweeper(expirer Expirer, clk clock.Clock, logger *slog.Logger, interval time.Duration, batch int) *ExpirySweeper {
	if batch <= 0 {
		batch = 100
	}
	return &ExpirySweeper{
		expirer:  expirer,
		clock:    clk,
		logger:   logger,
		interval: interval,
		batch:    batch,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep drains every overdue booking, one batch at a time. It stops early when
// a batch makes no progress so a persistently failing row cannot spin it.
func (s *ExpirySweeper) Sweep(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := s.expirer.ExpireOverdue(ctx, s.batch)
		total += n
		if err != nil {
			s.logger.Error("expiry sweep failed", "err", err, "expired", n)
			break
		}
		if n < s.batch {
			break
		}
	}
	if total > 0 {
		s.logger.Info("expired overdue bookings", "count", total)
	}
	return total
}

// Package sweeper enforces the retention window: scan data older than the
// configured TTL is wiped from storage on a fixed cadence.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/store"
)

// Config holds sweeper tuning.
type Config struct {
	// Interval is the cadence between sweeps.
	Interval time.Duration

	// TTL is how long scan data may live after task creation.
	TTL time.Duration
}

// DefaultConfig returns the default retention configuration: hourly sweeps,
// 24 hour retention.
func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		TTL:      24 * time.Hour,
	}
}

// Sweeper periodically wipes expired scans. Eligibility is by age alone:
// a scan still running past the TTL is wiped like any other, which the
// orchestrator tolerates.
type Sweeper struct {
	cfg    Config
	store  store.Store
	logger interfaces.Logger
}

// New creates a sweeper. Zero config fields fall back to defaults.
func New(cfg Config, st store.Store, logger interfaces.Logger) (*Sweeper, error) {
	if st == nil {
		return nil, errors.New("sweeper: nil store provided")
	}
	if logger == nil {
		return nil, errors.New("sweeper: nil logger provided")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Sweeper{
		cfg:    cfg,
		store:  st,
		logger: logger.With(interfaces.Field{Key: "component", Value: "sweeper"}),
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started",
		interfaces.Field{Key: "interval", Value: s.cfg.Interval.String()},
		interfaces.Field{Key: "ttl", Value: s.cfg.TTL.String()})

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	wiped, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error("sweep failed", interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	if wiped > 0 {
		s.logger.Info("sweep wiped expired scans", interfaces.Field{Key: "count", Value: wiped})
	}
}

// SweepOnce wipes every scan older than the TTL and returns how many were
// removed. A failed wipe is logged and skipped so one bad row cannot stall
// retention for the rest.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.TTL)
	ids, err := s.store.ExpiredTaskIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	wiped := 0
	for _, id := range ids {
		ok, err := s.store.WipeTask(ctx, id)
		if err != nil {
			s.logger.Error("failed to wipe expired scan",
				interfaces.Field{Key: "task_id", Value: id},
				interfaces.Field{Key: "error", Value: err.Error()})
			continue
		}
		if ok {
			wiped++
		}
	}
	return wiped, nil
}

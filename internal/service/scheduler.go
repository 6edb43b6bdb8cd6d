package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/controla/backend/internal/config"
	"github.com/controla/backend/internal/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultSweepInterval = 60 * time.Second

type fleetSource interface {
	AllInstances(ctx context.Context) ([]model.Instance, error)
}

type statusUpdater interface {
	UpdateStatus(ctx context.Context, inst *model.Instance) error
}

// SweepResult - outcome of one pass over the fleet
type SweepResult struct {
	Total  int
	Failed int
}

// FleetScheduler refreshes every instance on a fixed period. A failing or
// panicking instance is logged and skipped; the sweep always continues.
type FleetScheduler struct {
	source   fleetSource
	updater  statusUpdater
	interval time.Duration
	workers  int
	metrics  *ProbeMetrics
}

func NewFleetScheduler(source fleetSource, updater statusUpdater, cfg config.MonitorConfig, metrics *ProbeMetrics) *FleetScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &FleetScheduler{
		source:   source,
		updater:  updater,
		interval: interval,
		workers:  workers,
		metrics:  metrics,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *FleetScheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Int("workers", s.workers).Msg("Fleet scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Fleet scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep updates every known instance once.
func (s *FleetScheduler) Sweep(ctx context.Context) SweepResult {
	started := time.Now()

	instances, err := s.source.AllInstances(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load instances for sweep")
		return SweepResult{}
	}

	var failed atomic.Int64
	var mu sync.Mutex
	counts := make(map[model.InstanceStatus]int)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range instances {
		inst := &instances[i]
		g.Go(func() error {
			if err := s.updateOne(gctx, inst); err != nil {
				failed.Add(1)
				s.metrics.RecordSweepFailure()
				log.Error().Err(err).Str("instance", inst.ExternalID).Msg("Instance update failed")
			}
			mu.Lock()
			counts[inst.Status]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(started)
	s.metrics.ObserveSweep(elapsed, counts)

	result := SweepResult{Total: len(instances), Failed: int(failed.Load())}
	log.Debug().
		Int("instances", result.Total).
		Int("failed", result.Failed).
		Dur("elapsed", elapsed).
		Msg("Fleet sweep finished")
	return result
}

func (s *FleetScheduler) updateOne(ctx context.Context, inst *model.Instance) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.updater.UpdateStatus(ctx, inst)
}

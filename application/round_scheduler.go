package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"wingo/service"
)

// Guarded operation names
const (
	OperationCreateRounds = "round:create"
	OperationSettleRounds = "round:settle"
	OperationRefreshDemo  = "demo:refresh"
)

// SchedulerMetrics records per-tick measurements
type SchedulerMetrics interface {
	RecordTick(operation string, duration time.Duration, err error)
	RecordTickSkipped(operation string)
	RecordSettlementFailures(count int)
	RecordDemoUsers(count int)
}

// RoundScheduler drives round creation, settlement and demo user refresh
type RoundScheduler struct {
	rounds      service.RoundService
	settlement  service.SettlementService
	demoUsers   service.DemoUserService
	guard       service.Guard
	metrics     SchedulerMetrics
	tick        time.Duration
	demoRefresh time.Duration
}

// NewRoundScheduler creates a new round scheduler
func NewRoundScheduler(
	rounds service.RoundService,
	settlement service.SettlementService,
	demoUsers service.DemoUserService,
	guard service.Guard,
	metrics SchedulerMetrics,
	tick time.Duration,
	demoRefresh time.Duration,
) *RoundScheduler {
	return &RoundScheduler{
		rounds:      rounds,
		settlement:  settlement,
		demoUsers:   demoUsers,
		guard:       guard,
		metrics:     metrics,
		tick:        tick,
		demoRefresh: demoRefresh,
	}
}

// Start begins the scheduler loops. The returned function stops them and
// waits for in-flight ticks to return.
func (s *RoundScheduler) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	var wg sync.WaitGroup

	loops := []struct {
		name     string
		interval time.Duration
		run      func(ctx context.Context) error
	}{
		{OperationCreateRounds, s.tick, s.createRounds},
		{OperationSettleRounds, s.tick, s.settleRounds},
		{OperationRefreshDemo, s.demoRefresh, s.refreshDemoUsers},
	}

	for _, l := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, stopChan, l.name, l.interval, l.run)
		}()
	}

	log.WithFields(log.Fields{
		"tick":        s.tick,
		"demoRefresh": s.demoRefresh,
	}).Info("Round scheduler started")

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopChan)
			wg.Wait()
			log.Info("Round scheduler stopped")
		})
	}
}

func (s *RoundScheduler) loop(ctx context.Context, stopChan <-chan struct{}, name string, interval time.Duration, run func(ctx context.Context) error) {
	// Run immediately on start
	s.runTick(ctx, name, run)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.WithField("operation", name).Debug("Scheduler loop shutting down (context cancelled)")
			return
		case <-stopChan:
			log.WithField("operation", name).Debug("Scheduler loop shutting down (stop requested)")
			return
		case <-ticker.C:
			s.runTick(ctx, name, run)
		}
	}
}

// runTick runs one guarded tick. Panics and errors are logged and never
// escape the loop.
func (s *RoundScheduler) runTick(ctx context.Context, name string, run func(ctx context.Context) error) {
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.WithFields(log.Fields{
				"operation": name,
				"panic":     r,
			}).Error("Recovered from panic in scheduler tick")
		}
		if err != nil {
			s.metrics.RecordTick(name, time.Since(start), err)
		}
	}()

	var ran bool
	ran, err = s.guard.TryRun(ctx, name, run)
	if !ran && err == nil {
		s.metrics.RecordTickSkipped(name)
		return
	}
	if err != nil {
		log.WithFields(log.Fields{
			"operation": name,
			"error":     err,
		}).Error("Scheduler tick failed")
		return
	}

	s.metrics.RecordTick(name, time.Since(start), nil)
}

func (s *RoundScheduler) createRounds(ctx context.Context) error {
	return s.rounds.EnsureActiveRounds(ctx)
}

func (s *RoundScheduler) settleRounds(ctx context.Context) error {
	result, err := s.settlement.SettleExpiredRounds(ctx)
	if err != nil {
		return err
	}
	s.metrics.RecordSettlementFailures(result.Failed)
	return nil
}

func (s *RoundScheduler) refreshDemoUsers(ctx context.Context) error {
	err := s.demoUsers.Refresh(ctx)
	s.metrics.RecordDemoUsers(s.demoUsers.Count())
	return err
}

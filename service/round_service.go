package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wingo/events"
	"wingo/models"
)

type roundService struct {
	uowFactory    UnitOfWorkFactory
	rounds        RoundRepository
	intervals     []models.Interval
	bettingCutoff time.Duration
	now           func() time.Time
}

// NewRoundService creates a round service for the given interval registry.
// rounds is used for reads outside a transaction.
func NewRoundService(uowFactory UnitOfWorkFactory, rounds RoundRepository, intervals []models.Interval, bettingCutoff time.Duration) RoundService {
	return &roundService{
		uowFactory:    uowFactory,
		rounds:        rounds,
		intervals:     intervals,
		bettingCutoff: bettingCutoff,
		now:           time.Now,
	}
}

// EnsureActiveRounds opens a round for every interval without one covering now.
// Each interval is handled concurrently in its own transaction; a failure in
// one does not stop the others. The first failure is returned after all finish.
func (s *roundService) EnsureActiveRounds(ctx context.Context) error {
	now := s.now().UTC()

	active, err := s.rounds.GetActive(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to get active rounds: %w", err)
	}

	covered := make(map[string]bool, len(active))
	for _, round := range active {
		covered[round.Interval] = true
	}

	var g errgroup.Group
	for _, interval := range s.intervals {
		if covered[interval.Label] {
			continue
		}

		g.Go(func() error {
			if _, err := s.CreateNextRound(ctx, interval); err != nil {
				entry := log.WithFields(log.Fields{
					"interval": interval.Label,
					"error":    err,
				})
				if errors.Is(err, ErrConcurrentUpdate) {
					entry.Info("Round creation lost a race, will recheck next tick")
					return nil
				}
				entry.Error("Failed to create round")
				return fmt.Errorf("interval %s: %w", interval.Label, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// CreateNextRound opens the next round of interval. If a round already covers
// now, or one is already scheduled to start later, that round is returned instead.
func (s *roundService) CreateNextRound(ctx context.Context, interval models.Interval) (*models.Round, error) {
	if interval.Label == "" || interval.Duration <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval.Label)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.RoundRepository()
	if err := repo.LockInterval(ctx, interval.Label); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)

	active, err := repo.GetActiveByInterval(ctx, interval.Label, now)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	latest, err := repo.GetLatestByInterval(ctx, interval.Label)
	if err != nil {
		return nil, err
	}

	start := now
	if latest != nil {
		if latest.StartTime.After(now) {
			return latest, nil
		}
		// Back-to-back windows when the previous round has not ended yet
		if !latest.EndTime.Before(now) {
			start = latest.EndTime.UTC()
		}
	}

	serial, err := repo.NextSerialNumber(ctx, interval.Label)
	if err != nil {
		return nil, err
	}

	round := &models.Round{
		Period:       models.FormatPeriod(start),
		Interval:     interval.Label,
		SerialNumber: serial,
		StartTime:    start,
		EndTime:      start.Add(interval.Duration),
		Status:       models.RoundStatusPending,
	}
	if err := repo.Create(ctx, round); err != nil {
		return nil, err
	}

	err = uow.EventBus().Publish(events.RoundCreatedEvent{
		RoundID:         round.ID,
		Period:          round.Period,
		Interval:        round.Interval,
		SerialNumber:    round.SerialNumber,
		StartTime:       round.StartTime,
		EndTime:         round.EndTime,
		RemainingMs:     round.Remaining(now).Milliseconds(),
		BettingClosesAt: round.EndTime.Add(-s.bettingCutoff),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to queue round created event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":  round.ID,
		"period":   round.Period,
		"interval": round.Interval,
		"serial":   round.SerialNumber,
		"endTime":  round.EndTime,
	}).Info("Created round")

	return round, nil
}

func (s *roundService) GetRecentRounds(ctx context.Context, interval string, limit int) ([]*models.Round, error) {
	if _, ok := models.FindInterval(s.intervals, interval); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	if limit <= 0 {
		limit = 10
	}
	return s.rounds.GetRecentByInterval(ctx, interval, limit)
}

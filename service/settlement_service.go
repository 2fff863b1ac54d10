package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/models"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
	rounds     RoundRepository
	demoUsers  DemoUserOracle
	rng        models.RandomSource
	threshold  decimal.Decimal
	batchSize  int
	now        func() time.Time
}

// NewSettlementService creates a settlement service. rounds is used to find
// expired rounds outside a transaction; every round is then settled in its own.
func NewSettlementService(
	uowFactory UnitOfWorkFactory,
	rounds RoundRepository,
	demoUsers DemoUserOracle,
	rng models.RandomSource,
	threshold decimal.Decimal,
	batchSize int,
) SettlementService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &settlementService{
		uowFactory: uowFactory,
		rounds:     rounds,
		demoUsers:  demoUsers,
		rng:        rng,
		threshold:  threshold,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

func (s *settlementService) SettleExpiredRounds(ctx context.Context) (*models.BatchResult, error) {
	expired, err := s.rounds.GetExpiredPending(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired rounds: %w", err)
	}

	result := &models.BatchResult{}
	for _, round := range expired {
		if ctx.Err() != nil {
			break
		}
		result.Attempted++

		settled, err := s.SettleRound(ctx, round.ID)
		switch {
		case err != nil && errors.Is(err, ErrConcurrentUpdate):
			result.Skipped++
			log.WithFields(log.Fields{
				"roundID": round.ID,
				"error":   err,
			}).Info("Round settled concurrently, skipping")
		case err != nil:
			result.Failed++
			log.WithFields(log.Fields{
				"roundID":  round.ID,
				"period":   round.Period,
				"interval": round.Interval,
				"error":    err,
			}).Error("Failed to settle round")
		case settled == nil:
			result.Skipped++
		default:
			result.Settled++
		}
	}

	if result.Attempted > 0 {
		log.WithFields(log.Fields{
			"attempted": result.Attempted,
			"settled":   result.Settled,
			"skipped":   result.Skipped,
			"failed":    result.Failed,
		}).Info("Settlement batch completed")
	}

	return result, nil
}

// SettleRound locks the round and its pending bets, draws the result and pays
// winners in one transaction. A round that is no longer pending is skipped
// with a nil result.
func (s *settlementService) SettleRound(ctx context.Context, roundID int64) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, fmt.Errorf("round %d: %w", roundID, ErrRoundNotFound)
	}
	if round.Status != models.RoundStatusPending {
		log.WithField("roundID", roundID).Debug("Round already settled, skipping")
		return nil, nil
	}

	now := s.now().UTC()
	if round.EndTime.After(now) {
		return nil, fmt.Errorf("round %d has not ended yet", roundID)
	}

	bets, err := uow.BetRepository().GetPendingByRoundForUpdate(ctx, roundID)
	if err != nil {
		return nil, err
	}

	digit := SelectOutcome(bets, s.threshold, s.rng)

	result, err := s.ApplySettlement(ctx, uow, round, bets, digit, now)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":     round.ID,
		"period":      round.Period,
		"interval":    round.Interval,
		"result":      digit,
		"betCount":    len(bets),
		"winnerCount": result.WinnerCount,
		"totalStake":  result.TotalStake.String(),
		"totalPayout": result.TotalPayout.String(),
	}).Info("Settled round")

	return result, nil
}

// ApplySettlement resolves every bet against digit, credits winners with a
// ledger entry, marks bets then the round settled, and queues the settled and
// result events. It runs inside the caller's unit of work.
func (s *settlementService) ApplySettlement(ctx context.Context, uow UnitOfWork, round *models.Round, bets []*models.Bet, digit int, settledAt time.Time) (*models.SettlementResult, error) {
	demoWinners := ResolveBets(bets, digit, s.demoUsers, s.rng, settledAt)

	for _, bet := range bets {
		if bet.Payout.IsPositive() {
			if err := s.creditWinner(ctx, uow, round, bet); err != nil {
				return nil, err
			}
		}
		if err := uow.BetRepository().Settle(ctx, bet); err != nil {
			return nil, err
		}
	}

	if err := uow.RoundRepository().MarkSettled(ctx, round.ID, digit, settledAt); err != nil {
		return nil, err
	}

	result := summarize(round, bets, digit, demoWinners, settledAt)

	round.Status = models.RoundStatusSettled
	resultNumber := int16(digit)
	round.ResultNumber = &resultNumber
	round.ResultAt = &settledAt

	bus := uow.EventBus()
	if err := bus.Publish(events.RoundSettledEvent{
		RoundID:   round.ID,
		Period:    round.Period,
		Interval:  round.Interval,
		SettledAt: settledAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to queue round settled event: %w", err)
	}
	if err := bus.Publish(events.RoundResultEvent{
		RoundID:      round.ID,
		Period:       round.Period,
		Interval:     round.Interval,
		ResultNumber: digit,
		Colors:       models.ResultColors(digit),
		Size:         models.ResultSize(digit),
		BetCount:     len(bets),
		WinnerCount:  result.WinnerCount,
		TotalStake:   result.TotalStake,
		TotalPayout:  result.TotalPayout,
		SettledAt:    settledAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to queue round result event: %w", err)
	}

	return result, nil
}

func (s *settlementService) creditWinner(ctx context.Context, uow UnitOfWork, round *models.Round, bet *models.Bet) error {
	newBalance, err := uow.UserRepository().AddBalance(ctx, bet.UserID, bet.Payout)
	if err != nil {
		return fmt.Errorf("failed to credit bet %d: %w", bet.ID, err)
	}

	betID := bet.ID
	relatedType := models.RelatedTypeBet
	history := &models.BalanceHistory{
		UserID:          bet.UserID,
		BalanceBefore:   newBalance.Sub(bet.Payout),
		BalanceAfter:    newBalance,
		ChangeAmount:    bet.Payout,
		TransactionType: models.TransactionTypeWingoWin,
		TransactionMetadata: map[string]any{
			"round_id":   round.ID,
			"period":     round.Period,
			"interval":   round.Interval,
			"bet_type":   bet.Type,
			"bet_value":  bet.Value,
			"bet_amount": bet.Amount.String(),
		},
		RelatedID:   &betID,
		RelatedType: &relatedType,
	}

	return RecordBalanceChange(ctx, uow, history)
}

// ResolveBets sets Win, Payout and SettledAt on every bet for result digit and
// returns how many bets won only because their owner is a demo user.
//
// Demo users always win at the bet's own multiplier. Random-type bets draw a
// new private digit here, independent of any draw made while selecting digit.
func ResolveBets(bets []*models.Bet, digit int, demoUsers DemoUserOracle, rng models.RandomSource, settledAt time.Time) int {
	demoWinners := 0
	for _, bet := range bets {
		won := bet.Wins(digit, rng)
		if !won && demoUsers != nil && demoUsers.IsDemoUser(bet.UserID) {
			won = true
			demoWinners++
		}

		bet.Win = lo.ToPtr(won)
		bet.Payout = bet.PayoutFor(won)
		bet.SettledAt = lo.ToPtr(settledAt)
	}
	return demoWinners
}

func summarize(round *models.Round, bets []*models.Bet, digit, demoWinners int, settledAt time.Time) *models.SettlementResult {
	return &models.SettlementResult{
		Round:        round,
		ResultNumber: digit,
		Bets:         bets,
		TotalStake: lo.Reduce(bets, func(sum decimal.Decimal, bet *models.Bet, _ int) decimal.Decimal {
			return sum.Add(bet.Amount)
		}, decimal.Zero),
		TotalPayout: lo.Reduce(bets, func(sum decimal.Decimal, bet *models.Bet, _ int) decimal.Decimal {
			return sum.Add(bet.Payout)
		}, decimal.Zero),
		WinnerCount: lo.CountBy(bets, func(bet *models.Bet) bool {
			return bet.Win != nil && *bet.Win
		}),
		DemoWinners: demoWinners,
		SettledAt:   settledAt,
	}
}

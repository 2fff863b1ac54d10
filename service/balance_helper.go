package service

import (
	"context"
	"fmt"

	"wingo/events"
	"wingo/models"
)

// RecordBalanceChange records a balance history entry and queues the matching event.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Flushed after the transaction commits
	event := events.BalanceChangeEvent{
		UserID:          history.UserID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	}
	if err := uow.EventBus().Publish(event); err != nil {
		return fmt.Errorf("failed to queue balance change event: %w", err)
	}

	return nil
}

package jobs

import (
	"context"
	"errors"
	"fmt"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
)

const expireOrdersJob = "ExpireStaleOrders"

// SweepResult summarizes one expiration pass.
type SweepResult struct {
	Found   int
	Expired int
	Skipped int // already left Waiting between listing and expiring
	Failed  int
}

// ExpireStaleOrders expires Waiting orders older than the configured TTL
func (jr *JobRunner) ExpireStaleOrders() {
	jr.runWithRecovery(expireOrdersJob, func() error {
		_, err := jr.SweepStaleOrders(context.Background())
		return err
	})
}

// SweepStaleOrders expires each stale order in its own transaction so one
// failure never blocks the rest. Re-running over the same orders is a no-op.
func (jr *JobRunner) SweepStaleOrders(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := jr.now().Add(-jr.config.Orders.TTL)

	stale, err := jr.services.Order.ListStale(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("list stale orders: %w", err)
	}
	result.Found = len(stale)

	for _, order := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, err := jr.services.Order.Expire(ctx, order.ID)
		switch {
		case err == nil:
			result.Expired++
		case errors.Is(err, domain.ErrOrderNotWaiting), errors.Is(err, domain.ErrOrderNotFound):
			result.Skipped++
		default:
			result.Failed++
			logger.Error("Failed to expire order", "orderID", order.ID, "error", err)
		}
	}

	logger.Info("Expired stale orders", "cutoff", cutoff, "found", result.Found,
		"expired", result.Expired, "skipped", result.Skipped, "failed", result.Failed)
	if result.Failed > 0 {
		return result, fmt.Errorf("%d of %d stale orders could not be expired", result.Failed, result.Found)
	}
	return result, nil
}

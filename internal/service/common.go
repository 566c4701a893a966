package service

import (
	"errors"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
)

// logExit records the outcome of a service call at a level matching its kind:
// rejections are expected business outcomes, anything unclassified is a failure.
func logExit(method string, err error, args ...any) {
	switch domain.KindOf(err) {
	case "":
		logger.ExitMethod(method, args...)
	case domain.KindInternal:
		logger.ExitMethodWithError(method, err, args...)
	default:
		logger.ExitMethodRejected(method, err, args...)
	}
}

// stockError turns a bounds failure from AdjustQuantity into the business
// conflict the caller sees.
func stockError(err error, conflict error, operation string) error {
	if errors.Is(err, domain.ErrInvalidQuantity) {
		metrics.RecordStockConflict(operation)
		return conflict
	}
	return err
}

// requireCaller rejects anonymous access to read operations.
func requireCaller(caller domain.Caller) error {
	if caller.UserID == 0 || caller.Role == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docseal/internal/domain"
	"docseal/internal/logging"

	"go.uber.org/zap"
)

// CounterAdmin exposes operator actions on numbering counters.
type CounterAdmin struct {
	Counters CounterStore
	Logger   *zap.Logger
}

func NewCounterAdmin(counters CounterStore, logger *zap.Logger) *CounterAdmin {
	return &CounterAdmin{Counters: counters, Logger: logging.OrNop(logger)}
}

func (a *CounterAdmin) PeekNext(ctx context.Context, key domain.CounterKey) (int64, error) {
	if a == nil || a.Counters == nil {
		return 0, errors.New("counter store is required")
	}
	return a.Counters.PeekNext(ctx, key)
}

func (a *CounterAdmin) Show(ctx context.Context, key domain.CounterKey) (domain.Counter, error) {
	if a == nil || a.Counters == nil {
		return domain.Counter{}, errors.New("counter store is required")
	}
	return a.Counters.GetOrCreate(ctx, key)
}

// Reset zeroes a counter. Numbers issued after a reset can collide with
// earlier ones in the same year, so a reason is mandatory and the action is
// logged at warn level.
func (a *CounterAdmin) Reset(ctx context.Context, key domain.CounterKey, actor, reason string) (domain.CounterReset, error) {
	if a == nil || a.Counters == nil {
		return domain.CounterReset{}, errors.New("counter store is required")
	}
	actor = strings.TrimSpace(actor)
	reason = strings.TrimSpace(reason)
	if actor == "" || reason == "" {
		return domain.CounterReset{}, fmt.Errorf("%w: actor and reason are required", domain.ErrValidation)
	}
	reset, err := a.Counters.Reset(ctx, key, actor, reason)
	if err != nil {
		return domain.CounterReset{}, err
	}
	logging.OrNop(a.Logger).Warn("counter reset",
		zap.String("counter", key.String()),
		zap.Int64("previous_value", reset.PreviousValue),
		zap.String("actor", actor),
		zap.String("reason", reason),
		zap.String("reset_id", reset.ID))
	return reset, nil
}

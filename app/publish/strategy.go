package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Strategy is one way of achieving an outcome of type T.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// TryEach evaluates strategies left to right and returns the first success
// together with the winning strategy's name. Failures along the way are
// logged at debug level and folded into the final error if nothing succeeds.
// This covers every ordered-fallback instance in the subsystem: relay then
// direct, comment field-set variants, multi-channel DM delivery.
func TryEach[T any](ctx context.Context, what string, strategies []Strategy[T]) (T, string, error) {
	var zero T
	var failures []error

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		result, err := s.Run(ctx)
		if err == nil {
			return result, s.Name, nil
		}

		slog.Debug("Strategy failed, trying next", "what", what, "strategy", s.Name, "error", err)
		failures = append(failures, fmt.Errorf("%s: %w", s.Name, err))
	}

	if len(failures) == 0 {
		return zero, "", fmt.Errorf("no strategies configured for %s", what)
	}

	return zero, "", fmt.Errorf("all strategies failed for %s: %w", what, errors.Join(failures...))
}

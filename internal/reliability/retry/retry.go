package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Retryable is one way of performing an operation
type Retryable[T any] func(ctx context.Context) (T, error)

// Strategy is a named Retryable tried as part of an ordered fallback chain
type Strategy[T any] struct {
	Name string
	Do   Retryable[T]
}

// FirstSuccess runs strategies in order and returns the first result that
// succeeds. Each strategy runs exactly once; there is no backoff. When every
// strategy fails the returned error names each attempt and wraps all of
// their errors.
func FirstSuccess[T any](ctx context.Context, log *slog.Logger, op string, strategies []Strategy[T]) (T, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, fmt.Errorf("%s: no strategies configured", op)
	}
	if log == nil {
		log = slog.Default()
	}

	errs := make([]error, 0, len(strategies))
	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := s.Do(ctx)
		if err == nil {
			if i > 0 {
				log.Info("fallback strategy succeeded",
					slog.String("operation", op),
					slog.String("strategy", s.Name),
					slog.Int("attempt", i+1),
				)
			}
			return result, nil
		}

		log.Warn("strategy failed",
			slog.String("operation", op),
			slog.String("strategy", s.Name),
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", len(strategies)),
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, len(strategies), errors.Join(errs...))
}

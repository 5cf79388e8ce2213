// Package numbering issues unique, human-readable document numbers scoped to
// a fiscal-year prefix. Issuance is serialised per prefix so concurrent
// creators never receive the same number, even across service instances.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrStorageUnavailable indicates the durable counter store could not be
	// reached. Callers must retry against the store, never against a local
	// counter.
	ErrStorageUnavailable = errors.New("sequence storage unavailable")
	// ErrTimeout indicates the operation ran out of time waiting on the store
	// or the prefix lock.
	ErrTimeout = errors.New("sequence operation timed out")
	// ErrContention indicates the bounded retry budget was exhausted under
	// concurrent load. The whole operation is safe to retry.
	ErrContention = errors.New("sequence contention")
)

// Store persists issued numbers per prefix.
type Store interface {
	// MaxIssued returns the highest numeric suffix issued under prefix,
	// comparing suffixes as integers. Zero when none exist.
	MaxIssued(ctx context.Context, prefix string) (int64, error)
	// Taken reports whether prefix-seq is already assigned, including
	// numbers inserted outside this generator.
	Taken(ctx context.Context, prefix string, seq int64) (bool, error)
	// Reserve durably records prefix-seq as issued. ErrContention is
	// returned when another writer claimed it first.
	Reserve(ctx context.Context, prefix string, seq int64) error
}

// Locker serialises issuance per prefix.
type Locker interface {
	// Acquire blocks until the key lock is held, the context expires, or the
	// wait budget runs out. The returned release must always be called.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Config tunes generator retry behaviour.
type Config struct {
	// MaxProbes bounds the taken-recheck loop per Next call.
	MaxProbes int
}

// Generator implements the read-modify-check issuance sequence.
type Generator struct {
	store     Store
	locker    Locker
	logger    *slog.Logger
	maxProbes int
}

// NewGenerator constructs a Generator.
func NewGenerator(store Store, locker Locker, logger *slog.Logger, cfg Config) *Generator {
	probes := cfg.MaxProbes
	if probes <= 0 {
		probes = 100
	}
	return &Generator{store: store, locker: locker, logger: logger, maxProbes: probes}
}

// Next issues the next free number under prefix and returns it formatted as
// "<prefix>-<n>", n starting at 1 with no padding.
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("numbering: prefix required")
	}

	release, err := g.locker.Acquire(ctx, prefix)
	if err != nil {
		return "", err
	}
	defer release()

	highest, err := g.store.MaxIssued(ctx, prefix)
	if err != nil {
		return "", classify(ctx, err)
	}

	candidate := highest + 1
	for probe := 0; probe < g.maxProbes; probe++ {
		taken, err := g.store.Taken(ctx, prefix, candidate)
		if err != nil {
			return "", classify(ctx, err)
		}
		if taken {
			candidate++
			continue
		}
		if err := g.store.Reserve(ctx, prefix, candidate); err != nil {
			if errors.Is(err, ErrContention) {
				candidate++
				continue
			}
			return "", classify(ctx, err)
		}
		number := fmt.Sprintf("%s-%d", prefix, candidate)
		if g.logger != nil {
			g.logger.Debug("issued document number",
				slog.String("prefix", prefix), slog.Int64("seq", candidate))
		}
		return number, nil
	}
	return "", fmt.Errorf("numbering: probe budget exhausted for %s: %w", prefix, ErrContention)
}

// classify folds context expiry into ErrTimeout and everything else into
// ErrStorageUnavailable so callers see the documented taxonomy.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrTimeout), errors.Is(err, ErrContention):
		return err
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("numbering: %v: %w", err, ErrTimeout)
	default:
		return fmt.Errorf("numbering: %v: %w", err, ErrStorageUnavailable)
	}
}

// lockWaitSlice is the polling interval while waiting on a held prefix lock.
const lockWaitSlice = 10 * time.Millisecond

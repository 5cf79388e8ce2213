package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	asOf   time.Time
	closed int
	err    error
}

func (s *stubSweeper) ExpireOverdue(_ context.Context, asOf time.Time) (int, error) {
	s.asOf = asOf
	return s.closed, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestQuotationExpiryHandler(t *testing.T) {
	sweeper := &stubSweeper{closed: 3}
	handler := NewQuotationExpiryHandler(sweeper, testLogger())

	asOf := time.Date(2024, time.August, 20, 1, 0, 0, 0, time.UTC)
	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{AsOf: asOf})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, asOf, sweeper.asOf)
}

func TestQuotationExpiryHandlerDefaultsAsOf(t *testing.T) {
	sweeper := &stubSweeper{}
	handler := NewQuotationExpiryHandler(sweeper, testLogger())

	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{})
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, handler(context.Background(), task))
	assert.False(t, sweeper.asOf.Before(before), "zero as_of resolves to execution time")
}

func TestQuotationExpiryHandlerPropagatesError(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("db down")}
	handler := NewQuotationExpiryHandler(sweeper, testLogger())

	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{})
	require.NoError(t, err)
	assert.Error(t, handler(context.Background(), task))
}

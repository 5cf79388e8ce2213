// Package jobs wires background processing on top of Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationExpiry closes quotations whose validity date has passed.
	TaskQuotationExpiry = "quotation:expiry_sweep"
)

// QuotationExpiryPayload parameterises one sweep run. A zero AsOf means "now
// at execution time", so scheduled tasks stay reusable.
type QuotationExpiryPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewQuotationExpiryTask constructs the sweep task.
func NewQuotationExpiryTask(payload QuotationExpiryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationExpiry, data), nil
}

// ExpirySweeper is the service-side contract for the sweep.
type ExpirySweeper interface {
	ExpireOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// NewQuotationExpiryHandler returns the Asynq handler for expiry sweeps.
func NewQuotationExpiryHandler(sweeper ExpirySweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload QuotationExpiryPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		asOf := payload.AsOf
		if asOf.IsZero() {
			asOf = time.Now().UTC()
		}
		closed, err := sweeper.ExpireOverdue(ctx, asOf)
		if err != nil {
			logger.Error("expiry sweep failed", slog.Any("error", err))
			return err
		}
		logger.Info("expiry sweep done", slog.Int("closed", closed), slog.Time("as_of", asOf))
		return nil
	}
}

package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/hearthshare/hearth-api/internal/invitations"
	"github.com/hearthshare/hearth-api/internal/temporal"
)

type Activities struct {
	Expiry *invitations.ExpiryManager
}

// SweepExpiredActivity runs one bounded sweep pass over lapsed pending
// invitations.
func (a *Activities) SweepExpiredActivity(ctx context.Context, params temporal.SweepParams) (temporal.SweepBatchResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Sweeping lapsed invitations", "batchSize", params.BatchSize)

	result, err := a.Expiry.SweepExpired(params.BatchSize)
	if err != nil {
		logger.Error("Expiry sweep failed", "error", err)
		return temporal.SweepBatchResult{}, err
	}

	return temporal.SweepBatchResult{Processed: result.Processed, HasMore: result.HasMore}, nil
}

package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/hearthshare/hearth-api/internal/temporal"
	"github.com/hearthshare/hearth-api/internal/temporal/activities"
)

// maxSweepBatches bounds one workflow run; the cron schedule picks up any
// remainder on the next tick.
const maxSweepBatches = 100

// ExpirySweepWorkflow drains lapsed pending invitations in bounded batches
// until none remain. Each batch is idempotent, so a retried activity never
// double-expires a record.
func ExpirySweepWorkflow(ctx workflow.Context, params temporal.SweepParams) (temporal.SweepReport, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting expiry sweep workflow", "BatchSize", params.BatchSize)

	var a *activities.Activities

	var report temporal.SweepReport
	for i := 0; i < maxSweepBatches; i++ {
		var batch temporal.SweepBatchResult
		if err := workflow.ExecuteActivity(ctx, a.SweepExpiredActivity, params).Get(ctx, &batch); err != nil {
			logger.Error("Sweep batch failed.", "error", err)
			return report, err
		}

		report.TotalProcessed += batch.Processed
		report.Batches++
		if !batch.HasMore {
			break
		}
	}

	logger.Info("Expiry sweep workflow completed.", "TotalProcessed", report.TotalProcessed, "Batches", report.Batches)
	return report, nil
}

package temporal

import "time"

// TaskQueueName is the name of the Temporal task queue used for invitation
// maintenance workflows.
const TaskQueueName = "HEARTH_INVITATIONS"

// SweepWorkflowID identifies the recurring expiry sweep. A single cron
// workflow owns the sweep; Temporal enforces one running instance per id.
const SweepWorkflowID = "invitation-expiry-sweep"

// DefaultActivityTimeout is the default timeout duration for Temporal
// activities in maintenance workflows.
const DefaultActivityTimeout = 5 * time.Minute

// SweepParams defines the input for the expiry sweep workflow.
type SweepParams struct {
	BatchSize int
}

// SweepBatchResult holds one sweep activity pass.
type SweepBatchResult struct {
	Processed int
	HasMore   bool
}

// SweepReport aggregates a full sweep workflow run.
type SweepReport struct {
	TotalProcessed int
	Batches        int
}

package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAdjustmentSubmitted notifies reviewers about a new pending
	// adjustment request.
	TaskAdjustmentSubmitted = "adjustment:submitted"
	// TaskEvidencePurge removes orphaned evidence files.
	TaskEvidencePurge = "adjustment:evidence_purge"
	// TaskIdempotencyCleanup trims expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// AdjustmentSubmittedPayload carries what reviewers need to triage.
type AdjustmentSubmittedPayload struct {
	RequestID   string    `json:"request_id"`
	ProductID   int64     `json:"product_id"`
	BatchID     int64     `json:"stock_batch_id"`
	Type        string    `json:"type"`
	Quantity    int64     `json:"quantity"`
	Reason      string    `json:"reason"`
	SubmittedBy int64     `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewAdjustmentSubmittedTask constructs the reviewer notification task.
func NewAdjustmentSubmittedTask(payload AdjustmentSubmittedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAdjustmentSubmitted, data), nil
}

// NewEvidencePurgeTask constructs the evidence cleanup task.
func NewEvidencePurgeTask() *asynq.Task {
	return asynq.NewTask(TaskEvidencePurge, nil)
}

// NewIdempotencyCleanupTask constructs the key cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

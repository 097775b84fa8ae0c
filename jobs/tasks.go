package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDecisionNotify is the task type for decision fan-out.
	TaskTypeDecisionNotify = "notify:decision"
	// TaskTypeSessionsCleanup is the task type for pruning expired session rows.
	TaskTypeSessionsCleanup = "sessions:cleanup"
)

// DecisionNotifyPayload describes a decided approval request for fan-out to
// the requester and any configured watchers.
type DecisionNotifyPayload struct {
	DocumentID  uuid.UUID `json:"document_id"`
	DocType     string    `json:"doc_type"`
	Number      string    `json:"number"`
	Module      string    `json:"module"`
	Outcome     string    `json:"outcome"`
	Remarks     string    `json:"remarks,omitempty"`
	RequestedBy int64     `json:"requested_by"`
	DecidedBy   int64     `json:"decided_by"`
	Watchers    []int64   `json:"watchers,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

// NewDecisionNotifyTask constructs an Asynq task for a decided document.
func NewDecisionNotifyTask(payload DecisionNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDecisionNotify, data, asynq.MaxRetry(5), asynq.Queue(QueueDefault)), nil
}

// NewSessionsCleanupTask constructs the periodic session cleanup task.
func NewSessionsCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionsCleanup, nil, asynq.Queue(QueueDefault))
}

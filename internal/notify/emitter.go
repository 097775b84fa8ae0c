// Package notify fans decided-request events out to interested parties.
// Emission is fire-and-forget from the workflow engine's perspective: the
// task queue retries delivery with its own backoff, and failures never
// reach the decision transaction.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sitestack-erp/sitestack-erp/jobs"
)

// DecisionEvent describes a decided approval request.
type DecisionEvent struct {
	DocumentID  uuid.UUID
	DocType     string
	Number      string
	Module      string
	Outcome     string
	Remarks     string
	RequestedBy int64
	DecidedBy   int64
	Watchers    []int64
	DecidedAt   time.Time
}

// Emitter enqueues decision events onto the background queue.
type Emitter struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewEmitter constructs an Emitter.
func NewEmitter(client *asynq.Client, logger *slog.Logger) *Emitter {
	return &Emitter{client: client, logger: logger}
}

// DecisionDecided enqueues one fan-out task.
func (e *Emitter) DecisionDecided(ctx context.Context, event DecisionEvent) error {
	task, err := jobs.NewDecisionNotifyTask(jobs.DecisionNotifyPayload{
		DocumentID:  event.DocumentID,
		DocType:     event.DocType,
		Number:      event.Number,
		Module:      event.Module,
		Outcome:     event.Outcome,
		Remarks:     event.Remarks,
		RequestedBy: event.RequestedBy,
		DecidedBy:   event.DecidedBy,
		Watchers:    event.Watchers,
		DecidedAt:   event.DecidedAt,
	})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		e.logger.Error("enqueue decision notify", slog.Any("error", err))
		return err
	}
	return nil
}

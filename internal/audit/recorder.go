package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder persists audit entries. Callers treat failures as delivery
// problems: the triggering state transition has already committed, so the
// error is logged and surfaced separately, never back to the actor.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder constructs Recorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record appends one entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if entry.ActorID == 0 {
		return errors.New("audit actor required")
	}
	if entry.Action == "" || entry.Module == "" || entry.EntityType == "" {
		return errors.New("audit entry requires action/module/entity_type")
	}
	if entry.EntityID == uuid.Nil {
		return errors.New("audit entity id required")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO audit_entries (actor_id, action, module, entity_type, entity_id, outcome, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ActorID, entry.Action, entry.Module, entry.EntityType, entry.EntityID, entry.Outcome, entry.At)
	if err != nil {
		r.logger.Error("record audit entry", slog.Any("error", err))
		return err
	}
	return nil
}

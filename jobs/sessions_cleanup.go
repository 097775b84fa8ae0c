package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionsCleanup prunes expired login session rows. Audit entries are
// append-only and deliberately excluded from any retention job.
type SessionsCleanup struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// Handle processes one cleanup run.
func (c *SessionsCleanup) Handle(ctx context.Context, t *asynq.Task) error {
	if c.Pool == nil {
		return asynq.SkipRetry
	}
	tag, err := c.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		c.Logger.Error("sessions cleanup", slog.Any("error", err))
		return err
	}
	if tag.RowsAffected() > 0 {
		c.Logger.Info("sessions cleanup", slog.Int64("removed", tag.RowsAffected()))
	}
	return nil
}

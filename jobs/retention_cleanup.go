package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultKeepDays keeps two years of history when the payload is silent.
const defaultKeepDays = 730

// RetentionCleanupJob prunes audit logs and stock movements older than the
// retention window. Movements stay append-only while they live; pruning is
// the only delete that ever touches them.
type RetentionCleanupJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewRetentionCleanupJob initialises the cleanup handler.
func NewRetentionCleanupJob(pool *pgxpool.Pool, logger *slog.Logger) *RetentionCleanupJob {
	return &RetentionCleanupJob{Pool: pool, Logger: logger}
}

// Handle executes one cleanup pass.
func (j *RetentionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("retention cleanup: handler not configured")
	}
	var payload RetentionCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.KeepDays <= 0 {
		payload.KeepDays = defaultKeepDays
	}

	audits, err := j.Pool.Exec(ctx,
		`DELETE FROM audit_logs WHERE occurred_at < NOW() - ($1 || ' days')::interval`, payload.KeepDays)
	if err != nil {
		j.Logger.Error("retention cleanup: audit logs", slog.Any("error", err))
		return err
	}
	movements, err := j.Pool.Exec(ctx, `
		DELETE FROM stock_movements m
		USING stock_lots l
		WHERE m.lot_id = l.id AND l.quantity = 0
		  AND m.created_at < NOW() - ($1 || ' days')::interval`, payload.KeepDays)
	if err != nil {
		j.Logger.Error("retention cleanup: stock movements", slog.Any("error", err))
		return err
	}

	j.Logger.Info("retention cleanup done",
		slog.Int64("audit_logs", audits.RowsAffected()),
		slog.Int64("stock_movements", movements.RowsAffected()),
		slog.Int("keep_days", payload.KeepDays),
	)
	return nil
}

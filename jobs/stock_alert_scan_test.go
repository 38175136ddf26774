package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/sdthai/backoffice/internal/stock"
)

// recordingLedger captures the expiry look-ahead the sweep asks for.
type recordingLedger struct {
	expiringBefore time.Time
}

func (r *recordingLedger) WithTx(ctx context.Context, fn func(context.Context, stock.Repository) error) error {
	return fn(ctx, r)
}

func (r *recordingLedger) GetLot(context.Context, string) (*stock.Lot, error) { return nil, nil }

func (r *recordingLedger) GetLotForUpdate(context.Context, string) (*stock.Lot, error) {
	return nil, nil
}

func (r *recordingLedger) LotsForProductForUpdate(context.Context, string) ([]stock.Lot, error) {
	return nil, nil
}

func (r *recordingLedger) ListLots(context.Context, *string) ([]stock.Lot, error) { return nil, nil }

func (r *recordingLedger) InsertLot(context.Context, stock.Lot) error { return nil }

func (r *recordingLedger) SetLotQuantities(context.Context, string, int, int, int) error {
	return nil
}

func (r *recordingLedger) InsertMovement(context.Context, stock.Movement) error { return nil }

func (r *recordingLedger) ListMovements(context.Context, string) ([]stock.Movement, error) {
	return nil, nil
}

func (r *recordingLedger) GetOrder(context.Context, string) (*stock.OrderRef, error) {
	return nil, nil
}

func (r *recordingLedger) Summary(context.Context, *string) ([]stock.ProductSummary, error) {
	return nil, nil
}

func (r *recordingLedger) LowStock(context.Context) ([]stock.LowStockAlert, error) {
	return nil, nil
}

func (r *recordingLedger) ExpiringLots(ctx context.Context, before time.Time) ([]stock.ExpiryAlert, error) {
	r.expiringBefore = before
	return nil, nil
}

func newScanJob(ledger *recordingLedger) *StockAlertScanJob {
	svc := stock.NewService(ledger, 7*24*time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStockAlertScanJob(svc, logger)
}

func TestStockAlertScanUsesPayloadWindow(t *testing.T) {
	ledger := &recordingLedger{}
	job := newScanJob(ledger)

	task, err := NewStockAlertScanTask(StockAlertScanPayload{ExpiryWindowHours: 48})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.WithinDuration(t, time.Now().Add(48*time.Hour), ledger.expiringBefore, time.Minute)
}

func TestStockAlertScanDefaultsToServiceWindow(t *testing.T) {
	ledger := &recordingLedger{}
	job := newScanJob(ledger)

	task, err := NewStockAlertScanTask(StockAlertScanPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), ledger.expiringBefore, time.Minute)
}

func TestStockAlertScanSkipsMalformedPayload(t *testing.T) {
	ledger := &recordingLedger{}
	job := newScanJob(ledger)

	err := job.Handle(context.Background(), asynq.NewTask(TaskStockAlertScan, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

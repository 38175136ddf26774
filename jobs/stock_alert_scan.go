package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sdthai/backoffice/internal/stock"
)

// StockAlertScanJob sweeps the ledger for products under their alert
// threshold and lots close to expiry, and logs each finding. The back
// office dashboards read the same alert query on demand; this sweep exists
// so shortages surface in the morning without anyone opening a screen.
type StockAlertScanJob struct {
	Stock  *stock.Service
	Logger *slog.Logger
}

// NewStockAlertScanJob initialises the sweep handler.
func NewStockAlertScanJob(stockSvc *stock.Service, logger *slog.Logger) *StockAlertScanJob {
	return &StockAlertScanJob{Stock: stockSvc, Logger: logger}
}

// Handle executes one sweep.
func (j *StockAlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("stock alert scan: handler not configured")
	}
	var payload StockAlertScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	started := time.Now()
	var alerts *stock.Alerts
	var err error
	if payload.ExpiryWindowHours > 0 {
		alerts, err = j.Stock.AlertsWithin(ctx, time.Duration(payload.ExpiryWindowHours)*time.Hour)
	} else {
		alerts, err = j.Stock.Alerts(ctx)
	}
	if err != nil {
		j.Logger.Error("stock alert scan failed", slog.Any("error", err))
		return err
	}

	for _, a := range alerts.LowStock {
		j.Logger.Warn("low stock",
			slog.String("product_id", a.ProductID),
			slog.String("product", a.ProductName),
			slog.Int("available", a.Available),
			slog.Int("threshold", a.Threshold),
		)
	}
	for _, a := range alerts.Expiring {
		j.Logger.Warn("lot expiring",
			slog.String("lot_id", a.LotID),
			slog.String("product", a.ProductName),
			slog.Int("quantity", a.Quantity),
			slog.Time("expiry", a.ExpiryDate),
		)
	}

	j.Logger.Info("stock alert scan done",
		slog.Int("low_stock", len(alerts.LowStock)),
		slog.Int("expiring", len(alerts.Expiring)),
		slog.Duration("took", time.Since(started)),
	)
	return nil
}

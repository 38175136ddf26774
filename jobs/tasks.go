package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAlertScan is the daily low-stock and expiry sweep.
	TaskStockAlertScan = "stock:alert_scan"
	// TaskRetentionCleanup prunes aged audit and movement records.
	TaskRetentionCleanup = "maintenance:retention_cleanup"
)

// StockAlertScanPayload tunes one alert sweep.
type StockAlertScanPayload struct {
	ExpiryWindowHours int `json:"expiryWindowHours"`
}

// NewStockAlertScanTask constructs the alert sweep task.
func NewStockAlertScanTask(payload StockAlertScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlertScan, data), nil
}

// RetentionCleanupPayload bounds how much history the cleanup keeps.
type RetentionCleanupPayload struct {
	KeepDays int `json:"keepDays"`
}

// NewRetentionCleanupTask constructs the cleanup task.
func NewRetentionCleanupTask(payload RetentionCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionCleanup, data), nil
}

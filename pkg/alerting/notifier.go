package alerting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/younsl/bucketpulse/internal/models"
)

// Notifier delivers a persisted alert to an outside channel
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// MultiNotifier fans an alert out to every notifier and joins their errors
type MultiNotifier []Notifier

// Notify calls every notifier even when an earlier one fails
func (m MultiNotifier) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to a structured logger
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the alert at warn level
func (n LogNotifier) Notify(ctx context.Context, alert models.Alert) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "alert raised",
		"alert_id", alert.AlertID,
		"bucket", alert.BucketName,
		"prefix", alert.Prefix,
		"severity", alert.Severity,
		"type", alert.Type,
		"message", alert.Message,
	)
	return nil
}

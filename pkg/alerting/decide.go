// Package alerting decides when a status transition raises an alert and
// delivers created alerts to notifiers.
package alerting

import (
	"github.com/younsl/bucketpulse/internal/models"
)

const fallbackMessage = "Threshold breached"

// SeverityFor maps a status code to an alert severity.
// OK and UNKNOWN have no severity and never alert.
func SeverityFor(code models.StatusCode) (models.Severity, bool) {
	switch code {
	case models.StatusStalled:
		return models.SeverityCritical, true
	case models.StatusDegrading, models.StatusAnomalous:
		return models.SeverityWarn, true
	default:
		return "", false
	}
}

// Rank orders severities: INFO 1, WARN 2, CRITICAL 3. Anything else ranks 0.
func Rank(s models.Severity) int {
	switch s {
	case models.SeverityInfo:
		return 1
	case models.SeverityWarn:
		return 2
	case models.SeverityCritical:
		return 3
	default:
		return 0
	}
}

// AlertTypeFor maps a status code to the alert type.
// ANOMALOUS maps to STALENESS, not DELETE_SPIKE; existing alert consumers key on this.
func AlertTypeFor(code models.StatusCode) models.AlertType {
	switch code {
	case models.StatusStalled, models.StatusDegrading:
		return models.AlertTypeFreshness
	default:
		return models.AlertTypeStaleness
	}
}

// Decide returns the alert to create for the transition previous -> current, or nil.
// Any change of status code alerts, including de-escalations such as STALLED -> DEGRADING.
func Decide(cfg models.PrefixConfig, current models.PrefixStatus, previous *models.PrefixStatus) *models.Alert {
	severity, ok := SeverityFor(current.Status)
	if !ok {
		return nil
	}

	if previous != nil {
		prevSeverity, _ := SeverityFor(previous.Status)
		escalated := Rank(prevSeverity) < Rank(severity)
		changed := previous.Status != current.Status
		if !escalated && !changed {
			return nil
		}
	}

	message := current.StatusReason
	if message == "" {
		message = fallbackMessage
	}

	return &models.Alert{
		BucketName: cfg.BucketName,
		Prefix:     cfg.Prefix,
		Type:       AlertTypeFor(current.Status),
		Severity:   severity,
		Message:    message,
		Details: map[string]any{
			"status":        string(current.Status),
			"lastEventTime": current.LastEventTime,
			"totalObjects":  current.TotalObjects,
		},
		Resolved: false,
	}
}

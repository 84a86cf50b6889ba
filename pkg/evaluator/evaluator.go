// Package evaluator derives a prefix status code and reason from journal and
// inventory metrics.
//
// Checks run in a fixed order over a small carried state:
//
//  1. freshness sets the baseline code and reason
//  2. staleness escalates OK/UNKNOWN to DEGRADING, or appends to a worse reason
//  3. the delete spike check overrides everything
package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// DeleteSpikePct is the share of total bytes deleted in one window that marks a prefix ANOMALOUS
const DeleteSpikePct = 30.0

const (
	reasonHealthy  = "Healthy"
	reasonNoEvents = "No events observed in the journal window."
)

// Result is the outcome of one evaluation
type Result struct {
	Code   models.StatusCode
	Reason string
}

type state struct {
	code   models.StatusCode
	reason string
}

// Evaluate computes the status for one prefix at the given instant
func Evaluate(cfg models.PrefixConfig, journal models.JournalMetrics, inventory models.InventoryMetrics, now time.Time) Result {
	s := state{code: models.StatusOK, reason: reasonHealthy}
	s.checkFreshness(cfg, journal, now)
	s.checkStaleness(cfg, inventory)
	s.checkAnomaly(journal, inventory)
	return Result{Code: s.code, Reason: s.reason}
}

func (s *state) checkFreshness(cfg models.PrefixConfig, journal models.JournalMetrics, now time.Time) {
	if journal.LastEventTime == "" {
		s.code, s.reason = models.StatusUnknown, reasonNoEvents
		return
	}
	last, err := utils.ParseEventTime(journal.LastEventTime)
	if err != nil {
		s.code = models.StatusUnknown
		s.reason = fmt.Sprintf("Unparsable last event time %q.", journal.LastEventTime)
		return
	}

	diffMinutes := utils.MinutesSince(last, now)
	switch {
	case diffMinutes > float64(cfg.FreshnessCriticalThresholdMinutes):
		s.code = models.StatusStalled
		s.reason = fmt.Sprintf("No events for %dm (critical %dm).", roundHalfUp(diffMinutes), cfg.FreshnessCriticalThresholdMinutes)
	case diffMinutes > float64(cfg.FreshnessWarningThresholdMinutes):
		s.code = models.StatusDegrading
		s.reason = fmt.Sprintf("No events for %dm (warning %dm).", roundHalfUp(diffMinutes), cfg.FreshnessWarningThresholdMinutes)
	}
}

func (s *state) checkStaleness(cfg models.PrefixConfig, inventory models.InventoryMetrics) {
	if inventory.TotalObjects <= 0 || inventory.AgeHistogram == nil {
		return
	}
	oldPct := float64(inventory.AgeHistogram.Age90Plus) / float64(inventory.TotalObjects) * 100
	if oldPct <= cfg.StalenessMaxPctOld {
		return
	}

	threshold := formatNumber(cfg.StalenessMaxPctOld)
	if s.code == models.StatusOK || s.code == models.StatusUnknown {
		s.code = models.StatusDegrading
		s.reason = fmt.Sprintf("Old data %.1f%% exceeds threshold %s%%.", oldPct, threshold)
		return
	}
	s.reason += fmt.Sprintf(" Staleness breach: %.1f%% > %s%%.", oldPct, threshold)
}

func (s *state) checkAnomaly(journal models.JournalMetrics, inventory models.InventoryMetrics) {
	pct := DeletePct(journal.BytesDeleted, inventory.TotalBytes)
	if pct <= DeleteSpikePct {
		return
	}
	s.code = models.StatusAnomalous
	s.reason = fmt.Sprintf("Delete spike: removed %.2f GB (~%.1f%%) in window.", float64(journal.BytesDeleted)/1e9, pct)
}

// DeletePct is bytesDeleted as a percentage of totalBytes, 0 when totalBytes is not positive
func DeletePct(bytesDeleted, totalBytes int64) float64 {
	if totalBytes <= 0 {
		return 0
	}
	return float64(bytesDeleted) / float64(max(totalBytes, 1)) * 100
}

// roundHalfUp rounds .5 toward positive infinity
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// formatNumber prints thresholds without trailing zeros: 50 -> "50", 12.5 -> "12.5"
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package aggregator

import (
	"time"

	"github.com/younsl/bucketpulse/internal/models"
)

// CycleSummary describes one aggregation cycle
type CycleSummary struct {
	StartedAt     time.Time                 `json:"startedAt"`
	Duration      time.Duration             `json:"duration"`
	Evaluated     int                       `json:"evaluated"`
	Failed        int                       `json:"failed"`
	AlertsCreated int                       `json:"alertsCreated"`
	ByStatus      map[models.StatusCode]int `json:"byStatus"`
	Alerts        []models.Alert            `json:"alerts,omitempty"`
}

func newCycleSummary(startedAt time.Time) CycleSummary {
	return CycleSummary{
		StartedAt: startedAt,
		ByStatus:  make(map[models.StatusCode]int, len(models.AllStatusCodes)),
	}
}

func (c *CycleSummary) add(res prefixResult) {
	c.Evaluated++
	c.ByStatus[res.status]++
	if res.alert != nil {
		c.AlertsCreated++
		c.Alerts = append(c.Alerts, *res.alert)
	}
}

// Total is the number of prefixes the cycle attempted
func (c CycleSummary) Total() int {
	return c.Evaluated + c.Failed
}

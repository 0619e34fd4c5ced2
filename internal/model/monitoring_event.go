// internal/model/monitoring_event.go
package model

import "time"

const (
	EventActionCreated = "created"
	EventActionUpdated = "updated"
)

// MonitoringEvent is published whenever a consolidated record is written.
type MonitoringEvent struct {
	Tenant           string           `json:"tenant"`
	SourceCampaignID string           `json:"source_campaign_id"`
	Name             string           `json:"name"`
	Action           string           `json:"action"`
	MonitoringStatus MonitoringStatus `json:"monitoring_status"`
	PreviousStatus   MonitoringStatus `json:"previous_status,omitempty"`
	Message          string           `json:"message,omitempty"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

// NeedsAttention reports whether the campaign just entered a failing or delayed state.
func (e MonitoringEvent) NeedsAttention() bool {
	if e.MonitoringStatus == e.PreviousStatus {
		return false
	}
	return e.MonitoringStatus == MonitoringFailed || e.MonitoringStatus == MonitoringExecutionDelayed
}

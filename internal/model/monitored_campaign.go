// internal/model/monitored_campaign.go
package model

import (
	"strings"
	"time"
)

type CampaignStatus string

const (
	StatusScheduled CampaignStatus = "Scheduled"
	StatusExecuting CampaignStatus = "Executing"
	StatusCompleted CampaignStatus = "Completed"
	StatusError     CampaignStatus = "Error"
	StatusCanceled  CampaignStatus = "Canceled"
	StatusUnknown   CampaignStatus = "Unknown"
)

type MonitoringStatus string

const (
	MonitoringPending                 MonitoringStatus = "Pending"
	MonitoringInProgress              MonitoringStatus = "InProgress"
	MonitoringCompleted               MonitoringStatus = "Completed"
	MonitoringWaitingForNextExecution MonitoringStatus = "WaitingForNextExecution"
	MonitoringExecutionDelayed        MonitoringStatus = "ExecutionDelayed"
	MonitoringFailed                  MonitoringStatus = "Failed"
)

type CampaignKind string

const (
	KindSingle    CampaignKind = "Single"
	KindRecurrent CampaignKind = "Recurrent"
)

// Step types and statuses as reported by the source workflows.
const (
	StepTypeChannel = "Channel"
	StepTypeWait    = "Wait"
	StepTypeFilter  = "Filter"

	StepStatusRunning   = "Running"
	StepStatusCompleted = "Completed"
	StepStatusError     = "Error"
)

const (
	ExecutionStatusCompleted       = "Completed"
	ExecutionStatusMissingInSource = "MissingInSource"

	MissingExecutionPrefix = "MISSING_EXECUTION_"
)

type Step struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	TotalUsers         int             `json:"total_users"`
	ProcessedUsers     int             `json:"processed_users"`
	TotalExecutionTime int             `json:"total_execution_time"`
	ChannelID          string          `json:"channel_id,omitempty"`
	Note               string          `json:"note,omitempty"`
	Channel            *ChannelPayload `json:"channel,omitempty"`
}

type Execution struct {
	ID                  string     `json:"id"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Status              string     `json:"status"`
	Steps               []Step     `json:"steps"`
	HasMonitoringErrors bool       `json:"has_monitoring_errors"`
}

// IsMissing reports whether the execution is a placeholder for a firing the source never recorded.
func (e *Execution) IsMissing() bool {
	return e.Status == ExecutionStatusMissingInSource || strings.HasPrefix(e.ID, MissingExecutionPrefix)
}

type MonitoringHealthStatus struct {
	IsFullyVerified      bool   `json:"is_fully_verified"`
	HasPendingExecution  bool   `json:"has_pending_execution"`
	HasIntegrationErrors bool   `json:"has_integration_errors"`
	LastIssueExecutionID string `json:"last_issue_execution_id,omitempty"`
	LastMessage          string `json:"last_message,omitempty"`
}

// MonitoredCampaign is the consolidated record; identity is (TenantName, SourceCampaignID).
type MonitoredCampaign struct {
	ID                      int                    `db:"id" json:"id"`
	TenantName              string                 `db:"tenant_name" json:"tenant_name"`
	SourceCampaignID        string                 `db:"source_campaign_id" json:"source_campaign_id"`
	Sequence                int                    `db:"sequence" json:"sequence"`
	Name                    string                 `db:"name" json:"name"`
	Type                    string                 `db:"type" json:"type"`
	IsActive                bool                   `db:"is_active" json:"is_active"`
	CreatedAt               time.Time              `db:"created_at" json:"created_at"`
	ModifiedAt              time.Time              `db:"modified_at" json:"modified_at"`
	Status                  CampaignStatus         `db:"status" json:"status"`
	Scheduler               Scheduler              `db:"scheduler" json:"scheduler"`
	Executions              []Execution            `db:"executions" json:"executions"`
	Health                  MonitoringHealthStatus `db:"health" json:"health"`
	MonitoringStatus        MonitoringStatus       `db:"monitoring_status" json:"monitoring_status"`
	Kind                    CampaignKind           `db:"kind" json:"kind"`
	NextExecutionMonitoring *time.Time             `db:"next_execution_monitoring" json:"next_execution_monitoring,omitempty"`
	LastCheckMonitoring     time.Time              `db:"last_check_monitoring" json:"last_check_monitoring"`
}

// LastRealExecution returns the latest execution the source actually recorded, or nil.
func (c *MonitoredCampaign) LastRealExecution() *Execution {
	var last *Execution
	for i := range c.Executions {
		e := &c.Executions[i]
		if e.IsMissing() {
			continue
		}
		if last == nil || e.StartDate.After(last.StartDate) {
			last = e
		}
	}
	return last
}

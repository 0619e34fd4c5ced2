// internal/model/source_campaign.go
package model

import "time"

// Scheduler is the recurrence definition a source campaign fires on.
type Scheduler struct {
	StartDateTime time.Time  `json:"start_date_time"`
	EndDateTime   *time.Time `json:"end_date_time,omitempty"`
	IsRecurrent   bool       `json:"is_recurrent"`
	Cron          string     `json:"cron,omitempty"`
}

// SourceCampaign is the campaign as read from a tenant's own database.
// Executions is empty until the reconciler fetches them.
type SourceCampaign struct {
	ID         string            `db:"id" json:"id"`
	Sequence   int               `db:"sequence" json:"sequence"`
	Name       string            `db:"name" json:"name"`
	TypeCode   int               `db:"type_code" json:"type_code"`
	IsActive   bool              `db:"is_active" json:"is_active"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	ModifiedAt time.Time         `db:"modified_at" json:"modified_at"`
	StatusCode int               `db:"status_code" json:"status_code"`
	Scheduler  Scheduler         `db:"scheduler" json:"scheduler"`
	Executions []SourceExecution `json:"executions,omitempty"`
}

type SourceExecution struct {
	ID        string       `db:"id" json:"id"`
	StartDate time.Time    `db:"start_date" json:"start_date"`
	EndDate   *time.Time   `db:"end_date" json:"end_date,omitempty"`
	Status    string       `db:"status" json:"status"`
	Steps     []SourceStep `db:"steps" json:"steps"`
}

type SourceStep struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	Status             string `json:"status"`
	TotalUsers         int    `json:"total_users"`
	ProcessedUsers     int    `json:"processed_users"`
	TotalExecutionTime int    `json:"total_execution_time"` // seconds
	ChannelID          string `json:"channel_id,omitempty"`
}

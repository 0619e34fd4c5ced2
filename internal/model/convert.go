// internal/model/convert.go
package model

// source status codes as stored by tenant databases
var campaignStatusCodes = map[int]CampaignStatus{
	1: StatusScheduled,
	2: StatusExecuting,
	3: StatusCompleted,
	4: StatusError,
	5: StatusCanceled,
}

var campaignTypeCodes = map[int]string{
	1: "Standard",
	2: "Journey",
	3: "Trigger",
}

func CampaignStatusFromCode(code int) CampaignStatus {
	if s, ok := campaignStatusCodes[code]; ok {
		return s
	}
	return StatusUnknown
}

func CampaignTypeFromCode(code int) string {
	if t, ok := campaignTypeCodes[code]; ok {
		return t
	}
	return "Unknown"
}

// NewMonitoredCampaign builds the consolidated snapshot for a source campaign.
// Health fields are left zero; they are derived after reconciliation.
func NewMonitoredCampaign(tenant string, src *SourceCampaign) *MonitoredCampaign {
	return &MonitoredCampaign{
		TenantName:       tenant,
		SourceCampaignID: src.ID,
		Sequence:         src.Sequence,
		Name:             src.Name,
		Type:             CampaignTypeFromCode(src.TypeCode),
		IsActive:         src.IsActive,
		CreatedAt:        src.CreatedAt,
		ModifiedAt:       src.ModifiedAt,
		Status:           CampaignStatusFromCode(src.StatusCode),
		Scheduler:        copyScheduler(src.Scheduler),
		Executions:       ExecutionsFromSource(src.Executions),
	}
}

func ExecutionsFromSource(src []SourceExecution) []Execution {
	out := make([]Execution, 0, len(src))
	for _, se := range src {
		out = append(out, ExecutionFromSource(se))
	}
	return out
}

func ExecutionFromSource(se SourceExecution) Execution {
	e := Execution{
		ID:        se.ID,
		StartDate: se.StartDate,
		Status:    se.Status,
		Steps:     make([]Step, 0, len(se.Steps)),
	}
	if se.EndDate != nil {
		end := *se.EndDate
		e.EndDate = &end
	}
	for _, ss := range se.Steps {
		e.Steps = append(e.Steps, Step{
			ID:                 ss.ID,
			Name:               ss.Name,
			Type:               ss.Type,
			Status:             ss.Status,
			TotalUsers:         ss.TotalUsers,
			ProcessedUsers:     ss.ProcessedUsers,
			TotalExecutionTime: ss.TotalExecutionTime,
			ChannelID:          ss.ChannelID,
		})
	}
	return e
}

func copyScheduler(s Scheduler) Scheduler {
	out := s
	if s.EndDateTime != nil {
		end := *s.EndDateTime
		out.EndDateTime = &end
	}
	return out
}

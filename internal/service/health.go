// internal/service/health.go
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/campaign-monitor/internal/model"
	"github.com/unclebandit/campaign-monitor/internal/schedule"
)

// HealthResult is everything derived from a reconciled snapshot.
type HealthResult struct {
	Health                model.MonitoringHealthStatus
	MonitoringStatus      model.MonitoringStatus
	Kind                  model.CampaignKind
	NextExpectedExecution *time.Time
}

// CalculateHealth derives the monitoring state of a campaign from scratch.
func CalculateHealth(c *model.MonitoredCampaign, now time.Time) HealthResult {
	res := HealthResult{Kind: campaignKind(c)}
	res.NextExpectedExecution = nextExpectedExecution(c, res.Kind, now)

	if issue := lastIssueExecution(c.Executions); issue != nil {
		res.Health.HasIntegrationErrors = true
		res.Health.LastIssueExecutionID = issue.ID
		res.Health.LastMessage = firstStepNote(issue)
	}

	waiting := false
	if !res.Health.HasIntegrationErrors && c.Status == model.StatusExecuting {
		if msg, ok := waitMessage(c); ok {
			waiting = true
			res.Health.LastMessage = msg
		}
	}

	if !waiting && pendingApplies(c) {
		if expected, overdue := overdueRun(c, now); overdue {
			res.Health.HasPendingExecution = true
			if !res.Health.HasIntegrationErrors {
				res.Health.LastMessage = fmt.Sprintf("execution expected at %s has not been recorded", expected.UTC().Format(time.RFC3339))
			}
		}
	}

	res.Health.IsFullyVerified = fullyVerified(c, res.Health)
	res.MonitoringStatus = DeriveMonitoringStatus(res.Health, c.Status, res.Kind)
	return res
}

// ApplyHealth copies the derived fields onto the snapshot.
func ApplyHealth(c *model.MonitoredCampaign, res HealthResult, now time.Time) {
	c.Health = res.Health
	c.MonitoringStatus = res.MonitoringStatus
	c.Kind = res.Kind
	c.NextExecutionMonitoring = res.NextExpectedExecution
	c.LastCheckMonitoring = now
}

// DeriveMonitoringStatus applies the status precedence: integration errors, then a pending
// execution, then the source status.
func DeriveMonitoringStatus(h model.MonitoringHealthStatus, status model.CampaignStatus, kind model.CampaignKind) model.MonitoringStatus {
	if h.HasIntegrationErrors {
		return model.MonitoringFailed
	}
	if h.HasPendingExecution {
		return model.MonitoringExecutionDelayed
	}

	switch status {
	case model.StatusCompleted:
		if kind == model.KindRecurrent {
			return model.MonitoringWaitingForNextExecution
		}
		if h.IsFullyVerified {
			return model.MonitoringCompleted
		}
		return model.MonitoringInProgress
	case model.StatusError, model.StatusCanceled:
		return model.MonitoringFailed
	case model.StatusExecuting:
		return model.MonitoringInProgress
	case model.StatusScheduled:
		return model.MonitoringPending
	default:
		return model.MonitoringPending
	}
}

func campaignKind(c *model.MonitoredCampaign) model.CampaignKind {
	if c.Scheduler.IsRecurrent || len(c.Executions) > 1 {
		return model.KindRecurrent
	}
	return model.KindSingle
}

func nextExpectedExecution(c *model.MonitoredCampaign, kind model.CampaignKind, now time.Time) *time.Time {
	if kind == model.KindRecurrent && schedule.Valid(c.Scheduler.Cron) {
		next, ok := schedule.NextOccurrence(c.Scheduler.Cron, now)
		if !ok || afterEnd(c, next) {
			return nil
		}
		return &next
	}
	if c.Scheduler.StartDateTime.IsZero() {
		return nil
	}
	start := c.Scheduler.StartDateTime
	return &start
}

// lastIssueExecution returns the chronologically last execution flagged with monitoring errors.
func lastIssueExecution(executions []model.Execution) *model.Execution {
	var last *model.Execution
	for i := range executions {
		e := &executions[i]
		if !e.HasMonitoringErrors {
			continue
		}
		if last == nil || !e.StartDate.Before(last.StartDate) {
			last = e
		}
	}
	return last
}

func firstStepNote(e *model.Execution) string {
	for _, s := range e.Steps {
		if note := strings.TrimSpace(s.Note); note != "" {
			return note
		}
	}
	return ""
}

// waitMessage reports a running Wait step on the latest execution with its expected completion.
func waitMessage(c *model.MonitoredCampaign) (string, bool) {
	last := c.LastRealExecution()
	if last == nil {
		return "", false
	}
	for i := len(last.Steps) - 1; i >= 0; i-- {
		s := last.Steps[i]
		if s.Type != model.StepTypeWait {
			continue
		}
		if s.Status != model.StepStatusRunning || s.TotalExecutionTime <= 0 {
			return "", false
		}
		expectedEnd := last.StartDate.Add(time.Duration(s.TotalExecutionTime) * time.Second)
		name := s.Name
		if name == "" {
			name = s.ID
		}
		return fmt.Sprintf("waiting on step %q, execution expected to complete at %s",
			name, expectedEnd.UTC().Format(time.RFC3339)), true
	}
	return "", false
}

// pendingApplies excludes campaigns that are not expected to fire at all.
func pendingApplies(c *model.MonitoredCampaign) bool {
	return c.IsActive && c.Status != model.StatusCanceled
}

// overdueRun reports whether an expected run is missing, and when it was expected.
func overdueRun(c *model.MonitoredCampaign, now time.Time) (time.Time, bool) {
	start := c.Scheduler.StartDateTime
	if start.IsZero() {
		return time.Time{}, false
	}

	expr := ""
	if c.Scheduler.IsRecurrent {
		expr = c.Scheduler.Cron
	}

	var lastRun *time.Time
	if last := c.LastRealExecution(); last != nil {
		t := last.StartDate
		lastRun = &t
	}

	if !schedule.IsOverdue(expr, start, lastRun, now) {
		return time.Time{}, false
	}
	if strings.TrimSpace(expr) == "" {
		return start, true
	}
	ref := start.Add(-time.Second)
	if lastRun != nil {
		ref = *lastRun
	}
	expected, _ := schedule.NextOccurrence(expr, ref)
	if afterEnd(c, expected) {
		return time.Time{}, false
	}
	return expected, true
}

// afterEnd reports whether t falls past the scheduler's end date, if it has one.
func afterEnd(c *model.MonitoredCampaign, t time.Time) bool {
	end := c.Scheduler.EndDateTime
	return end != nil && t.After(*end)
}

func fullyVerified(c *model.MonitoredCampaign, h model.MonitoringHealthStatus) bool {
	if h.HasIntegrationErrors || h.HasPendingExecution {
		return false
	}
	verified := 0
	for _, e := range c.Executions {
		if e.IsMissing() {
			return false
		}
		verified++
		if !strings.EqualFold(e.Status, model.ExecutionStatusCompleted) {
			return false
		}
		for _, s := range e.Steps {
			if s.Status == model.StepStatusRunning || s.Status == model.StepStatusError {
				return false
			}
		}
	}
	return verified > 0
}

package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-monitor/internal/model"
	"github.com/unclebandit/campaign-monitor/internal/service"
)

func TestOneShotNeverExecutedIsDelayed(t *testing.T) {
	c := &model.MonitoredCampaign{
		IsActive:  true,
		Status:    model.StatusScheduled,
		Scheduler: model.Scheduler{StartDateTime: day(2024, 1, 1, 9)},
	}

	res := service.CalculateHealth(c, day(2024, 1, 2, 9))

	assert.Equal(t, model.KindSingle, res.Kind)
	assert.True(t, res.Health.HasPendingExecution)
	assert.False(t, res.Health.HasIntegrationErrors)
	assert.Equal(t, model.MonitoringExecutionDelayed, res.MonitoringStatus)
	require.NotNil(t, res.NextExpectedExecution)
	assert.Equal(t, day(2024, 1, 1, 9), *res.NextExpectedExecution)
}

func TestOneShotInFutureIsPending(t *testing.T) {
	c := &model.MonitoredCampaign{
		IsActive:  true,
		Status:    model.StatusScheduled,
		Scheduler: model.Scheduler{StartDateTime: day(2024, 1, 5, 9)},
	}
	res := service.CalculateHealth(c, day(2024, 1, 2, 9))
	assert.False(t, res.Health.HasPendingExecution)
	assert.Equal(t, model.MonitoringPending, res.MonitoringStatus)
}

func TestRunningWaitStepSuppressesPending(t *testing.T) {
	execStart := day(2024, 3, 4, 10)
	c := &model.MonitoredCampaign{
		IsActive: true,
		Status:   model.StatusExecuting,
		Scheduler: model.Scheduler{
			StartDateTime: day(2024, 3, 4, 7),
			IsRecurrent:   true,
			Cron:          "0 * * * *",
		},
		Executions: []model.Execution{{
			ID:        "e-1",
			StartDate: execStart,
			Status:    "Running",
			Steps: []model.Step{
				{ID: "s-1", Type: model.StepTypeChannel, Status: model.StepStatusCompleted},
				{ID: "s-2", Name: "cool-off", Type: model.StepTypeWait, Status: model.StepStatusRunning, TotalExecutionTime: 3600},
			},
		}},
	}

	res := service.CalculateHealth(c, execStart.Add(90*time.Minute))

	assert.False(t, res.Health.HasPendingExecution)
	assert.False(t, res.Health.HasIntegrationErrors)
	assert.Contains(t, res.Health.LastMessage, "2024-03-04T11:00:00Z")
	assert.Equal(t, model.MonitoringInProgress, res.MonitoringStatus)
}

func TestWaitHeuristicIgnoresCompletedWait(t *testing.T) {
	execStart := day(2024, 3, 4, 10)
	c := &model.MonitoredCampaign{
		IsActive:  true,
		Status:    model.StatusExecuting,
		Scheduler: model.Scheduler{StartDateTime: day(2024, 3, 4, 7), IsRecurrent: true, Cron: "0 * * * *"},
		Executions: []model.Execution{{
			ID:        "e-1",
			StartDate: execStart,
			Steps:     []model.Step{{Type: model.StepTypeWait, Status: model.StepStatusCompleted, TotalExecutionTime: 3600}},
		}},
	}

	res := service.CalculateHealth(c, execStart.Add(90*time.Minute))
	assert.True(t, res.Health.HasPendingExecution)
	assert.Equal(t, model.MonitoringExecutionDelayed, res.MonitoringStatus)
}

func TestIntegrationErrorsUseLastIssue(t *testing.T) {
	c := &model.MonitoredCampaign{
		IsActive:  true,
		Status:    model.StatusExecuting,
		Scheduler: model.Scheduler{StartDateTime: day(2024, 1, 1, 0), IsRecurrent: true, Cron: "0 9 * * *"},
		Executions: []model.Execution{
			{ID: "e-3", StartDate: day(2024, 1, 3, 9), HasMonitoringErrors: true,
				Steps: []model.Step{{Note: ""}, {Note: "unknown channel \"9\""}, {Note: "second"}}},
			{ID: "e-1", StartDate: day(2024, 1, 1, 9), HasMonitoringErrors: true,
				Steps: []model.Step{{Note: "older"}}},
			{ID: "e-2", StartDate: day(2024, 1, 2, 9)},
		},
	}

	res := service.CalculateHealth(c, day(2024, 1, 3, 12))

	assert.True(t, res.Health.HasIntegrationErrors)
	assert.Equal(t, "e-3", res.Health.LastIssueExecutionID)
	assert.Equal(t, "unknown channel \"9\"", res.Health.LastMessage)
	assert.False(t, res.Health.IsFullyVerified)
	assert.Equal(t, model.MonitoringFailed, res.MonitoringStatus)
}

func TestCompletedSingleCampaign(t *testing.T) {
	base := func() *model.MonitoredCampaign {
		return &model.MonitoredCampaign{
			IsActive:  true,
			Status:    model.StatusCompleted,
			Scheduler: model.Scheduler{StartDateTime: day(2024, 1, 1, 9)},
			Executions: []model.Execution{{
				ID: "e-1", StartDate: day(2024, 1, 1, 9), Status: "Completed",
				Steps: []model.Step{{Type: model.StepTypeChannel, Status: model.StepStatusCompleted}},
			}},
		}
	}

	c := base()
	res := service.CalculateHealth(c, day(2024, 1, 2, 0))
	assert.True(t, res.Health.IsFullyVerified)
	assert.Equal(t, model.MonitoringCompleted, res.MonitoringStatus)

	c = base()
	c.Executions[0].Steps[0].Status = model.StepStatusRunning
	res = service.CalculateHealth(c, day(2024, 1, 2, 0))
	assert.False(t, res.Health.IsFullyVerified)
	assert.Equal(t, model.MonitoringInProgress, res.MonitoringStatus)
}

func TestCompletedRecurrentWaitsForNextExecution(t *testing.T) {
	c := &model.MonitoredCampaign{
		IsActive:   true,
		Status:     model.StatusCompleted,
		Scheduler:  model.Scheduler{StartDateTime: day(2024, 1, 1, 0), IsRecurrent: true, Cron: "0 9 * * MON"},
		Executions: []model.Execution{{ID: "e-1", StartDate: day(2024, 1, 1, 9), Status: "Completed"}},
	}

	now := day(2024, 1, 3, 12)
	res := service.CalculateHealth(c, now)

	assert.Equal(t, model.KindRecurrent, res.Kind)
	assert.Equal(t, model.MonitoringWaitingForNextExecution, res.MonitoringStatus)
	require.NotNil(t, res.NextExpectedExecution)
	assert.Equal(t, day(2024, 1, 8, 9), *res.NextExpectedExecution)
}

func TestEndedRecurrentCampaignIsNotDelayed(t *testing.T) {
	end := day(2024, 1, 10, 0)
	c := &model.MonitoredCampaign{
		IsActive: true,
		Status:   model.StatusExecuting,
		Scheduler: model.Scheduler{
			StartDateTime: day(2024, 1, 1, 0),
			EndDateTime:   &end,
			IsRecurrent:   true,
			Cron:          "0 9 * * MON",
		},
		Executions: []model.Execution{
			{ID: "e-1", StartDate: day(2024, 1, 1, 9), Status: "Completed"},
			{ID: "e-2", StartDate: day(2024, 1, 8, 9), Status: "Completed"},
		},
	}

	res := service.CalculateHealth(c, day(2024, 3, 1, 0))

	assert.False(t, res.Health.HasPendingExecution)
	assert.Nil(t, res.NextExpectedExecution)
	assert.Equal(t, model.MonitoringInProgress, res.MonitoringStatus)

	// before the end date the schedule still applies
	res = service.CalculateHealth(c, day(2024, 1, 3, 0))
	require.NotNil(t, res.NextExpectedExecution)
	assert.Equal(t, day(2024, 1, 8, 9), *res.NextExpectedExecution)
}

func TestMultipleExecutionsMakeCampaignRecurrent(t *testing.T) {
	c := &model.MonitoredCampaign{
		Status:    model.StatusCompleted,
		Scheduler: model.Scheduler{StartDateTime: day(2024, 1, 1, 0)},
		Executions: []model.Execution{
			{ID: "e-1", StartDate: day(2024, 1, 1, 9), Status: "Completed"},
			{ID: "e-2", StartDate: day(2024, 1, 2, 9), Status: "Completed"},
		},
	}
	res := service.CalculateHealth(c, day(2024, 1, 3, 0))
	assert.Equal(t, model.KindRecurrent, res.Kind)
	require.NotNil(t, res.NextExpectedExecution)
	assert.Equal(t, day(2024, 1, 1, 0), *res.NextExpectedExecution)
}

func TestCanceledCampaignIsNeverDelayed(t *testing.T) {
	c := &model.MonitoredCampaign{
		IsActive:  true,
		Status:    model.StatusCanceled,
		Scheduler: model.Scheduler{StartDateTime: day(2024, 1, 1, 9)},
	}
	res := service.CalculateHealth(c, day(2024, 2, 1, 0))
	assert.False(t, res.Health.HasPendingExecution)
	assert.Equal(t, model.MonitoringFailed, res.MonitoringStatus)
}

func TestApplyHealth(t *testing.T) {
	c := &model.MonitoredCampaign{}
	next := day(2024, 1, 8, 9)
	now := day(2024, 1, 3, 0)
	service.ApplyHealth(c, service.HealthResult{
		Health:                model.MonitoringHealthStatus{IsFullyVerified: true},
		MonitoringStatus:      model.MonitoringCompleted,
		Kind:                  model.KindSingle,
		NextExpectedExecution: &next,
	}, now)

	assert.True(t, c.Health.IsFullyVerified)
	assert.Equal(t, model.MonitoringCompleted, c.MonitoringStatus)
	assert.Equal(t, model.KindSingle, c.Kind)
	assert.Equal(t, &next, c.NextExecutionMonitoring)
	assert.Equal(t, now, c.LastCheckMonitoring)
}

func TestMonitoringStatusPrecedenceIsTotal(t *testing.T) {
	statuses := []model.CampaignStatus{
		model.StatusScheduled, model.StatusExecuting, model.StatusCompleted,
		model.StatusError, model.StatusCanceled, model.StatusUnknown, "",
	}
	kinds := []model.CampaignKind{model.KindSingle, model.KindRecurrent}

	expected := func(errs, pending, verified bool, st model.CampaignStatus, kind model.CampaignKind) model.MonitoringStatus {
		switch {
		case errs:
			return model.MonitoringFailed
		case pending:
			return model.MonitoringExecutionDelayed
		case st == model.StatusCompleted && kind == model.KindRecurrent:
			return model.MonitoringWaitingForNextExecution
		case st == model.StatusCompleted && verified:
			return model.MonitoringCompleted
		case st == model.StatusCompleted:
			return model.MonitoringInProgress
		case st == model.StatusError || st == model.StatusCanceled:
			return model.MonitoringFailed
		case st == model.StatusExecuting:
			return model.MonitoringInProgress
		default:
			return model.MonitoringPending
		}
	}

	for _, errs := range []bool{false, true} {
		for _, pending := range []bool{false, true} {
			for _, verified := range []bool{false, true} {
				for _, st := range statuses {
					for _, kind := range kinds {
						h := model.MonitoringHealthStatus{
							HasIntegrationErrors: errs,
							HasPendingExecution:  pending,
							IsFullyVerified:      verified,
						}
						name := fmt.Sprintf("errs=%v pending=%v verified=%v status=%q kind=%s", errs, pending, verified, st, kind)
						got := service.DeriveMonitoringStatus(h, st, kind)
						assert.Equal(t, expected(errs, pending, verified, st, kind), got, name)
						assert.NotEmpty(t, got, name)
					}
				}
			}
		}
	}
}

// internal/service/reconcile_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-monitor/internal/model"
	"github.com/unclebandit/campaign-monitor/internal/repository"
	"github.com/unclebandit/campaign-monitor/internal/schedule"
)

const dateLayout = "2006-01-02"

// ReconcileService turns one source campaign into an enriched consolidated snapshot.
type ReconcileService struct {
	SourceRepo repository.SourceRepositoryInterface
	Log        *zap.Logger
	Now        func() time.Time
}

// Reconcile never fails: fetch and enrichment problems degrade the snapshot and are logged.
// Health fields are left for CalculateHealth.
func (s *ReconcileService) Reconcile(ctx context.Context, tenant *model.Tenant, src *model.SourceCampaign) *model.MonitoredCampaign {
	log := s.Log.With(zap.String("tenant", tenant.Name), zap.String("campaign_id", src.ID))
	now := s.now()

	fetched, err := s.SourceRepo.ListExecutions(ctx, tenant.RoutingKey(), src.ID)
	switch {
	case err != nil && ctx.Err() != nil:
		log.Debug("execution fetch interrupted", zap.Error(err))
		fetched = nil
	case err != nil:
		log.Warn("failed to fetch executions, continuing without them", zap.Error(err))
		fetched = nil
	}

	snapshot := *src
	snapshot.Executions = fetched
	mc := model.NewMonitoredCampaign(tenant.Name, &snapshot)

	for i := range mc.Executions {
		if err := enrichExecution(tenant, &mc.Executions[i]); err != nil {
			log.Warn("failed to enrich execution", zap.String("execution_id", mc.Executions[i].ID), zap.Error(err))
		}
	}

	missing := MissingExecutions(src, mc.Executions, now)
	if len(missing) > 0 {
		log.Info("synthesized missing executions", zap.Int("count", len(missing)))
		mc.Executions = append(mc.Executions, missing...)
	}
	sort.SliceStable(mc.Executions, func(i, j int) bool {
		return mc.Executions[i].StartDate.Before(mc.Executions[j].StartDate)
	})
	return mc
}

func (s *ReconcileService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// MissingExecutions builds a placeholder for every scheduled date in [start, today) that has no
// real execution on the same date. Only active, recurrent, already started campaigns qualify.
func MissingExecutions(src *model.SourceCampaign, existing []model.Execution, now time.Time) []model.Execution {
	sched := src.Scheduler
	if !sched.IsRecurrent || !src.IsActive || sched.StartDateTime.After(now) {
		return nil
	}

	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if sched.EndDateTime != nil && sched.EndDateTime.Before(end) {
		end = *sched.EndDateTime
	}

	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		if !e.IsMissing() {
			seen[e.StartDate.UTC().Format(dateLayout)] = true
		}
	}

	var out []model.Execution
	for _, at := range schedule.DailyOccurrences(sched.Cron, sched.StartDateTime, end) {
		day := at.UTC().Format(dateLayout)
		if seen[day] {
			continue
		}
		out = append(out, missingExecution(at, day))
	}
	return out
}

func missingExecution(at time.Time, day string) model.Execution {
	return model.Execution{
		ID:        model.MissingExecutionPrefix + day,
		StartDate: at,
		Status:    model.ExecutionStatusMissingInSource,
		Steps: []model.Step{{
			ID:     "MISSING_STEP_" + day,
			Name:   "Missing execution",
			Status: model.StepStatusError,
			Note:   fmt.Sprintf("no execution found in source for the run scheduled at %s", at.UTC().Format(time.RFC3339)),
		}},
		HasMonitoringErrors: true,
	}
}

// enrichExecution resolves every channel step against the tenant's configuration.
// Unknown or unconfigured channels flag the execution; they are not errors.
func enrichExecution(tenant *model.Tenant, e *model.Execution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enrich execution %s: %v", e.ID, r)
		}
	}()

	if e.IsMissing() {
		return nil
	}
	for i := range e.Steps {
		step := &e.Steps[i]
		if step.Type != model.StepTypeChannel {
			continue
		}
		if !enrichChannelStep(tenant, step) {
			e.HasMonitoringErrors = true
		}
	}
	return nil
}

func enrichChannelStep(tenant *model.Tenant, step *model.Step) bool {
	ct, ok := model.ResolveChannel(step.ChannelID)
	if !ok {
		step.Note = fmt.Sprintf("unknown channel %q on step %s", step.ChannelID, step.ID)
		return false
	}
	cfg, ok := tenant.FindChannel(ct)
	if !ok {
		step.Note = fmt.Sprintf("channel %s (id %q) is not configured for tenant %s", ct, step.ChannelID, tenant.Name)
		return false
	}
	step.Channel = channelPayload(ct, cfg, step)
	return true
}

// channelPayload is where per-channel statistics ingestion plugs in.
func channelPayload(ct model.ChannelType, cfg model.ChannelConfig, step *model.Step) *model.ChannelPayload {
	p := &model.ChannelPayload{
		Type: ct,
		Base: model.ChannelBase{
			Sent:   step.ProcessedUsers,
			Failed: max(step.TotalUsers-step.ProcessedUsers, 0),
			Note:   fmt.Sprintf("statistics ingestion for channel %s is not implemented", ct),
		},
	}
	switch ct {
	case model.ChannelEmail:
		p.Email = &model.EmailData{}
	case model.ChannelSMS:
		p.SMS = &model.SMSData{}
	case model.ChannelPush:
		p.Push = &model.PushData{}
	case model.ChannelWhatsApp:
		p.WhatsApp = &model.WhatsAppData{}
	case model.ChannelAPI:
		p.API = &model.APIData{Endpoint: cfg.Endpoint}
	}
	return p
}

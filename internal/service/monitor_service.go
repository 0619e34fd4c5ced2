// internal/service/monitor_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/campaign-monitor/internal/errors"
	"github.com/unclebandit/campaign-monitor/internal/logging"
	"github.com/unclebandit/campaign-monitor/internal/model"
	"github.com/unclebandit/campaign-monitor/internal/queue"
	"github.com/unclebandit/campaign-monitor/internal/repository"
)

// CampaignReconciler is satisfied by *ReconcileService.
type CampaignReconciler interface {
	Reconcile(ctx context.Context, tenant *model.Tenant, src *model.SourceCampaign) *model.MonitoredCampaign
}

type MonitorService struct {
	TenantRepo   repository.TenantRepositoryInterface
	SourceRepo   repository.SourceRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	Reconciler   CampaignReconciler
	Queue        queue.Queue // optional
	Log          *zap.Logger
	Now          func() time.Time

	// TenantWorkers bounds how many tenants are processed at once; 0 means 1.
	TenantWorkers int

	cycleMu sync.Mutex
}

// CycleReport summarizes one monitoring cycle.
type CycleReport struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Tenants    int       `json:"tenants"`
	Skipped    int       `json:"skipped_tenants"`
	Campaigns  int       `json:"campaigns"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Failed     int       `json:"failed"`

	mu sync.Mutex
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeCreated
	outcomeUpdated
	outcomeUnchanged
)

func (r *CycleReport) record(o outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Campaigns++
	switch o {
	case outcomeCreated:
		r.Created++
	case outcomeUpdated:
		r.Updated++
	case outcomeUnchanged:
		r.Unchanged++
	default:
		r.Failed++
	}
}

func (s *MonitorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RunCycle reconciles every campaign of every active tenant once. Only a failure to list
// tenants is returned; everything below that is logged and counted in the report.
func (s *MonitorService) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !s.cycleMu.TryLock() {
		return nil, appErrors.ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	report := &CycleReport{CycleID: uuid.NewString(), StartedAt: s.now()}
	log := s.Log.With(zap.String("cycle_id", report.CycleID))

	tenants, err := s.TenantRepo.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active tenants: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(max(s.TenantWorkers, 1))

	for _, tenant := range tenants {
		if !tenant.IsActive {
			continue
		}
		report.Tenants++
		if !tenant.HasRouting() {
			log.Warn("skipping tenant without source routing",
				zap.String("tenant", tenant.Name),
				zap.Error(appErrors.NewMissingRouting(tenant.Name)))
			report.Skipped++
			continue
		}
		tenant := tenant
		g.Go(func() error {
			s.processTenant(ctx, log, tenant, report)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = s.now()
	log.Info("monitoring cycle finished",
		zap.Int("tenants", report.Tenants),
		zap.Int("skipped", report.Skipped),
		zap.Int("campaigns", report.Campaigns),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (s *MonitorService) processTenant(ctx context.Context, cycleLog *zap.Logger, tenant *model.Tenant, report *CycleReport) {
	log := cycleLog.With(zap.String("tenant", tenant.Name))

	campaigns, err := s.SourceRepo.ListCampaigns(ctx, tenant.RoutingKey())
	if err != nil {
		log.Warn("failed to fetch source campaigns", zap.Error(err))
		return
	}
	if len(campaigns) == 0 {
		log.Info("tenant has no source campaigns")
		return
	}

	for _, src := range campaigns {
		if ctx.Err() != nil {
			log.Info("cycle cancelled, leaving remaining campaigns for the next cycle")
			return
		}
		clog := logging.Campaign(cycleLog, tenant.Name, src.ID)
		o, err := s.processCampaign(ctx, clog, tenant, src)
		if err != nil {
			clog.Error("failed to monitor campaign", zap.Error(err))
		}
		report.record(o)
	}
}

func (s *MonitorService) processCampaign(ctx context.Context, log *zap.Logger, tenant *model.Tenant, src *model.SourceCampaign) (o outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			o, err = outcomeFailed, fmt.Errorf("panic while monitoring campaign: %v", r)
		}
	}()

	candidate := s.Reconciler.Reconcile(ctx, tenant, src)
	// a snapshot read under a cancelled context is incomplete and must not reach the store
	if err := ctx.Err(); err != nil {
		return outcomeFailed, fmt.Errorf("reconcile interrupted: %w", err)
	}
	now := s.now()
	ApplyHealth(candidate, CalculateHealth(candidate, now), now)

	// once started, the write side runs to completion even if the cycle is cancelled meanwhile
	writeCtx := context.WithoutCancel(ctx)

	stored, err := s.CampaignRepo.FindByTenantAndSourceID(writeCtx, tenant.Name, src.ID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("find monitored campaign: %w", err)
	}

	if stored == nil {
		if err := s.CampaignRepo.Create(writeCtx, candidate); err != nil {
			var dup *appErrors.ErrDuplicateCampaign
			if errors.As(err, &dup) {
				log.Info("campaign created concurrently, leaving it for the next cycle")
				return outcomeUnchanged, nil
			}
			return outcomeFailed, err
		}
		log.Info("monitored campaign created", zap.String("monitoring_status", string(candidate.MonitoringStatus)))
		s.publish(log, candidate, model.EventActionCreated, "")
		return outcomeCreated, nil
	}

	if !NeedsUpdate(stored, candidate) {
		log.Debug("monitored campaign unchanged")
		return outcomeUnchanged, nil
	}

	updated := MergeCandidate(stored, candidate)
	ok, err := s.CampaignRepo.Replace(writeCtx, stored.ID, updated)
	if err != nil {
		return outcomeFailed, err
	}
	if !ok {
		return outcomeFailed, fmt.Errorf("monitored campaign %d disappeared before replace", stored.ID)
	}
	log.Info("monitored campaign updated",
		zap.String("monitoring_status", string(updated.MonitoringStatus)),
		zap.String("previous_status", string(stored.MonitoringStatus)))
	s.publish(log, updated, model.EventActionUpdated, stored.MonitoringStatus)
	return outcomeUpdated, nil
}

// NeedsUpdate is the change-detection gate: the source was modified, executions were added,
// or the derived health changed.
func NeedsUpdate(stored, candidate *model.MonitoredCampaign) bool {
	if candidate.ModifiedAt.After(stored.ModifiedAt) {
		return true
	}
	if len(candidate.Executions) > len(stored.Executions) {
		return true
	}
	return candidate.Health != stored.Health
}

// MergeCandidate overlays the freshly derived fields on the stored record, keeping its identity.
func MergeCandidate(stored, candidate *model.MonitoredCampaign) *model.MonitoredCampaign {
	out := *stored
	out.Sequence = candidate.Sequence
	out.Name = candidate.Name
	out.Type = candidate.Type
	out.IsActive = candidate.IsActive
	out.Executions = candidate.Executions
	out.Status = candidate.Status
	out.ModifiedAt = candidate.ModifiedAt
	out.Scheduler = candidate.Scheduler
	out.Health = candidate.Health
	out.MonitoringStatus = candidate.MonitoringStatus
	out.Kind = candidate.Kind
	out.NextExecutionMonitoring = candidate.NextExecutionMonitoring
	out.LastCheckMonitoring = candidate.LastCheckMonitoring
	return &out
}

func (s *MonitorService) publish(log *zap.Logger, c *model.MonitoredCampaign, action string, previous model.MonitoringStatus) {
	if s.Queue == nil {
		return
	}
	ev := model.MonitoringEvent{
		Tenant:           c.TenantName,
		SourceCampaignID: c.SourceCampaignID,
		Name:             c.Name,
		Action:           action,
		MonitoringStatus: c.MonitoringStatus,
		PreviousStatus:   previous,
		Message:          c.Health.LastMessage,
		OccurredAt:       c.LastCheckMonitoring,
	}
	if err := s.Queue.Publish(queue.TopicMonitoring, ev); err != nil {
		log.Warn("failed to publish monitoring event", zap.Error(err))
	}
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/campaign-monitor/internal/model"
)

// --- Fake tenant directory ---

type fakeTenantRepo struct {
	tenants []*model.Tenant
	err     error
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeTenantRepo) ListActive(ctx context.Context) ([]*model.Tenant, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants, nil
}

func (f *fakeTenantRepo) FindByName(ctx context.Context, name string) (*model.Tenant, error) {
	for _, t := range f.tenants {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, errors.New("not found")
}

// --- Fake source store ---

type fakeSourceRepo struct {
	mu            sync.Mutex
	campaigns     map[string][]*model.SourceCampaign
	executions    map[string][]model.SourceExecution
	campaignErr   map[string]error
	executionErr  error
	executionHits int
	onExecutions  func()
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{
		campaigns:   map[string][]*model.SourceCampaign{},
		executions:  map[string][]model.SourceExecution{},
		campaignErr: map[string]error{},
	}
}

func (f *fakeSourceRepo) ListCampaigns(ctx context.Context, routingKey string) ([]*model.SourceCampaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.campaignErr[routingKey]; err != nil {
		return nil, err
	}
	return f.campaigns[routingKey], nil
}

func (f *fakeSourceRepo) ListExecutions(ctx context.Context, routingKey, campaignID string) ([]model.SourceExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executionHits++
	if f.onExecutions != nil {
		f.onExecutions()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.executionErr != nil {
		return nil, f.executionErr
	}
	return f.executions[routingKey+"/"+campaignID], nil
}

// --- Fake consolidated store ---

type fakeCampaignRepo struct {
	mu       sync.Mutex
	nextID   int
	byKey    map[string]model.MonitoredCampaign
	creates  int
	replaces int
	findErr  map[string]error
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{byKey: map[string]model.MonitoredCampaign{}, findErr: map[string]error{}}
}

func key(tenant, sourceID string) string { return tenant + "/" + sourceID }

func (f *fakeCampaignRepo) FindByTenantAndSourceID(ctx context.Context, tenant, sourceID string) (*model.MonitoredCampaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.findErr[key(tenant, sourceID)]; err != nil {
		return nil, err
	}
	c, ok := f.byKey[key(tenant, sourceID)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCampaignRepo) Create(ctx context.Context, c *model.MonitoredCampaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	f.byKey[key(c.TenantName, c.SourceCampaignID)] = *c
	f.creates++
	return nil
}

func (f *fakeCampaignRepo) Replace(ctx context.Context, id int, c *model.MonitoredCampaign) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(c.TenantName, c.SourceCampaignID)
	stored, ok := f.byKey[k]
	if !ok || stored.ID != id {
		return false, nil
	}
	f.byKey[k] = *c
	f.replaces++
	return true, nil
}

func (f *fakeCampaignRepo) ListByTenant(ctx context.Context, tenant string) ([]*model.MonitoredCampaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.MonitoredCampaign
	for _, c := range f.byKey {
		if c.TenantName == tenant {
			c := c
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeCampaignRepo) get(tenant, sourceID string) (model.MonitoredCampaign, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byKey[key(tenant, sourceID)]
	return c, ok
}

func (f *fakeCampaignRepo) writes() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.replaces
}

// --- Recording queue ---

type recordingQueue struct {
	mu     sync.Mutex
	events []model.MonitoringEvent
}

func (q *recordingQueue) Publish(topic string, payload any) error {
	ev, ok := payload.(model.MonitoringEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	return nil
}

func (q *recordingQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

// --- helpers ---

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func acmeTenant() *model.Tenant {
	return &model.Tenant{
		Name:     "acme",
		IsActive: true,
		Routing: &model.Routing{
			SourceDatabase: "acme_src",
			Channels: []model.ChannelConfig{
				{Type: model.ChannelSMS, Endpoint: "https://sms.acme"},
				{Type: model.ChannelAPI, Endpoint: "https://api.acme"},
			},
		},
	}
}

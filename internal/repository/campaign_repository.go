package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/campaign-monitor/internal/errors"
	"github.com/unclebandit/campaign-monitor/internal/model"
)

// CampaignRepositoryInterface is the consolidated store of monitored campaigns.
type CampaignRepositoryInterface interface {
	// FindByTenantAndSourceID returns nil, nil when the campaign has never been stored.
	FindByTenantAndSourceID(ctx context.Context, tenant, sourceID string) (*model.MonitoredCampaign, error)
	Create(ctx context.Context, c *model.MonitoredCampaign) error
	// Replace overwrites the whole record; it reports false when no row has that id.
	Replace(ctx context.Context, id int, c *model.MonitoredCampaign) (bool, error)
	ListByTenant(ctx context.Context, tenant string) ([]*model.MonitoredCampaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

const campaignColumns = `id, tenant_name, source_campaign_id, sequence, name, type, is_active,
        created_at, modified_at, status, scheduler, executions, health,
        monitoring_status, kind, next_execution_monitoring, last_check_monitoring`

// ====================== Encoding ======================

type encodedCampaign struct {
	scheduler  []byte
	executions []byte
	health     []byte
	next       sql.NullTime
}

func encodeCampaign(c *model.MonitoredCampaign) (*encodedCampaign, error) {
	var enc encodedCampaign
	var err error
	if enc.scheduler, err = json.Marshal(c.Scheduler); err != nil {
		return nil, fmt.Errorf("encode scheduler: %w", err)
	}
	executions := c.Executions
	if executions == nil {
		executions = []model.Execution{}
	}
	if enc.executions, err = json.Marshal(executions); err != nil {
		return nil, fmt.Errorf("encode executions: %w", err)
	}
	if enc.health, err = json.Marshal(c.Health); err != nil {
		return nil, fmt.Errorf("encode health: %w", err)
	}
	if c.NextExecutionMonitoring != nil {
		enc.next = sql.NullTime{Time: *c.NextExecutionMonitoring, Valid: true}
	}
	return &enc, nil
}

func scanCampaign(row rowScanner) (*model.MonitoredCampaign, error) {
	var c model.MonitoredCampaign
	var scheduler, executions, health []byte
	var next sql.NullTime
	err := row.Scan(
		&c.ID, &c.TenantName, &c.SourceCampaignID, &c.Sequence, &c.Name, &c.Type, &c.IsActive,
		&c.CreatedAt, &c.ModifiedAt, &c.Status, &scheduler, &executions, &health,
		&c.MonitoringStatus, &c.Kind, &next, &c.LastCheckMonitoring,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(scheduler, &c.Scheduler); err != nil {
		return nil, fmt.Errorf("decode scheduler: %w", err)
	}
	if err := decodeJSON(executions, &c.Executions); err != nil {
		return nil, fmt.Errorf("decode executions: %w", err)
	}
	if err := decodeJSON(health, &c.Health); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	if next.Valid {
		t := next.Time
		c.NextExecutionMonitoring = &t
	}
	return &c, nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) FindByTenantAndSourceID(ctx context.Context, tenant, sourceID string) (*model.MonitoredCampaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM monitored_campaigns
        WHERE tenant_name = $1 AND source_campaign_id = $2`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, tenant, sourceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.MonitoredCampaign) error {
	enc, err := encodeCampaign(c)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO monitored_campaigns
        (tenant_name, source_campaign_id, sequence, name, type, is_active,
         created_at, modified_at, status, scheduler, executions, health,
         monitoring_status, kind, next_execution_monitoring, last_check_monitoring)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id
    `
	err = r.DB.QueryRowContext(ctx, query,
		c.TenantName, c.SourceCampaignID, c.Sequence, c.Name, c.Type, c.IsActive,
		c.CreatedAt, c.ModifiedAt, c.Status, enc.scheduler, enc.executions, enc.health,
		c.MonitoringStatus, c.Kind, enc.next, c.LastCheckMonitoring,
	).Scan(&c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.NewDuplicateCampaign(c.TenantName, c.SourceCampaignID)
		}
		return fmt.Errorf("create monitored campaign: %w", err)
	}
	return nil
}

// Replace is a last-writer-wins overwrite keyed by the stored id.
func (r *CampaignRepository) Replace(ctx context.Context, id int, c *model.MonitoredCampaign) (bool, error) {
	enc, err := encodeCampaign(c)
	if err != nil {
		return false, err
	}
	query := `
        UPDATE monitored_campaigns
        SET tenant_name=$2, source_campaign_id=$3, sequence=$4, name=$5, type=$6, is_active=$7,
            created_at=$8, modified_at=$9, status=$10, scheduler=$11, executions=$12, health=$13,
            monitoring_status=$14, kind=$15, next_execution_monitoring=$16, last_check_monitoring=$17
        WHERE id=$1
    `
	res, err := r.DB.ExecContext(ctx, query, id,
		c.TenantName, c.SourceCampaignID, c.Sequence, c.Name, c.Type, c.IsActive,
		c.CreatedAt, c.ModifiedAt, c.Status, enc.scheduler, enc.executions, enc.health,
		c.MonitoringStatus, c.Kind, enc.next, c.LastCheckMonitoring,
	)
	if err != nil {
		return false, fmt.Errorf("replace monitored campaign %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CampaignRepository) ListByTenant(ctx context.Context, tenant string) ([]*model.MonitoredCampaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM monitored_campaigns
        WHERE tenant_name = $1
        ORDER BY sequence, id`
	rows, err := r.DB.QueryContext(ctx, query, tenant)
	if err != nil {
		return nil, fmt.Errorf("list monitored campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.MonitoredCampaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

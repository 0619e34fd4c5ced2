// internal/repository/source_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/unclebandit/campaign-monitor/internal/model"
)

// SourceRepositoryInterface reads a tenant's own campaign database.
type SourceRepositoryInterface interface {
	ListCampaigns(ctx context.Context, routingKey string) ([]*model.SourceCampaign, error)
	ListExecutions(ctx context.Context, routingKey, campaignID string) ([]model.SourceExecution, error)
}

// Connector resolves a routing key to an open database; *db.Registry implements it.
type Connector interface {
	Get(ctx context.Context, routingKey string) (*sql.DB, error)
}

type SourceRepository struct {
	Sources Connector
}

func (r *SourceRepository) ListCampaigns(ctx context.Context, routingKey string) ([]*model.SourceCampaign, error) {
	conn, err := r.Sources.Get(ctx, routingKey)
	if err != nil {
		return nil, err
	}

	query := `
        SELECT id, sequence, name, type_code, is_active, created_at, modified_at, status_code, scheduler
        FROM campaigns
        ORDER BY sequence
    `
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list source campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.SourceCampaign{}
	for rows.Next() {
		c := &model.SourceCampaign{}
		var scheduler []byte
		if err := rows.Scan(&c.ID, &c.Sequence, &c.Name, &c.TypeCode, &c.IsActive,
			&c.CreatedAt, &c.ModifiedAt, &c.StatusCode, &scheduler); err != nil {
			return nil, err
		}
		if len(scheduler) > 0 {
			if err := json.Unmarshal(scheduler, &c.Scheduler); err != nil {
				return nil, fmt.Errorf("decode scheduler of campaign %s: %w", c.ID, err)
			}
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *SourceRepository) ListExecutions(ctx context.Context, routingKey, campaignID string) ([]model.SourceExecution, error) {
	conn, err := r.Sources.Get(ctx, routingKey)
	if err != nil {
		return nil, err
	}

	query := `
        SELECT id, start_date, end_date, status, steps
        FROM executions
        WHERE campaign_id = $1
        ORDER BY start_date
    `
	rows, err := conn.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list executions of campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	executions := []model.SourceExecution{}
	for rows.Next() {
		var e model.SourceExecution
		var end sql.NullTime
		var steps []byte
		if err := rows.Scan(&e.ID, &e.StartDate, &end, &e.Status, &steps); err != nil {
			return nil, err
		}
		if end.Valid {
			t := end.Time
			e.EndDate = &t
		}
		if len(steps) > 0 {
			if err := json.Unmarshal(steps, &e.Steps); err != nil {
				return nil, fmt.Errorf("decode steps of execution %s: %w", e.ID, err)
			}
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}

var _ SourceRepositoryInterface = (*SourceRepository)(nil)

// internal/repository/tenant_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	appErrors "github.com/unclebandit/campaign-monitor/internal/errors"
	"github.com/unclebandit/campaign-monitor/internal/model"
)

type TenantRepositoryInterface interface {
	ListActive(ctx context.Context) ([]*model.Tenant, error)
	FindByName(ctx context.Context, name string) (*model.Tenant, error)
}

type TenantRepository struct {
	DB *sql.DB
}

const tenantColumns = `id, name, is_active, routing, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var t model.Tenant
	var routing []byte
	if err := row.Scan(&t.ID, &t.Name, &t.IsActive, &routing, &t.CreatedAt); err != nil {
		return nil, err
	}
	if len(routing) > 0 && string(routing) != "null" {
		var r model.Routing
		if err := json.Unmarshal(routing, &r); err != nil {
			return nil, fmt.Errorf("decode routing for tenant %s: %w", t.Name, err)
		}
		t.Routing = &r
	}
	return &t, nil
}

func (r *TenantRepository) ListActive(ctx context.Context) ([]*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE is_active = TRUE ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []*model.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) FindByName(ctx context.Context, name string) (*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE name = $1`
	t, err := scanTenant(r.DB.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewTenantNotFound(name)
		}
		return nil, err
	}
	return t, nil
}

var _ TenantRepositoryInterface = (*TenantRepository)(nil)

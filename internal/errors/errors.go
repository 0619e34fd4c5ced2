// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCycleInProgress is returned when a cycle is requested while another is still running.
var ErrCycleInProgress = errors.New("monitoring cycle already in progress")

type ErrCampaignNotFound struct {
	Tenant           string
	SourceCampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found for tenant %s", e.SourceCampaignID, e.Tenant)
}

func NewCampaignNotFound(tenant, sourceID string) error {
	return &ErrCampaignNotFound{Tenant: tenant, SourceCampaignID: sourceID}
}

type ErrTenantNotFound struct {
	Name string
}

func (e *ErrTenantNotFound) Error() string {
	return fmt.Sprintf("tenant %s not found", e.Name)
}

func NewTenantNotFound(name string) error {
	return &ErrTenantNotFound{Name: name}
}

// ErrMissingRouting marks a tenant without a usable source database.
type ErrMissingRouting struct {
	Tenant string
}

func (e *ErrMissingRouting) Error() string {
	return fmt.Sprintf("tenant %s has no source routing", e.Tenant)
}

func NewMissingRouting(tenant string) error {
	return &ErrMissingRouting{Tenant: tenant}
}

type ErrDuplicateCampaign struct {
	Tenant           string
	SourceCampaignID string
}

func (e *ErrDuplicateCampaign) Error() string {
	return fmt.Sprintf("campaign %s already monitored for tenant %s", e.SourceCampaignID, e.Tenant)
}

func NewDuplicateCampaign(tenant, sourceID string) error {
	return &ErrDuplicateCampaign{Tenant: tenant, SourceCampaignID: sourceID}
}

// IsNotFound reports whether err is a missing tenant or campaign.
func IsNotFound(err error) bool {
	var c *ErrCampaignNotFound
	var t *ErrTenantNotFound
	return errors.As(err, &c) || errors.As(err, &t)
}

// internal/model/tenant.go
package model

import (
	"strings"
	"time"
)

// ChannelConfig points at the endpoint or database backing one channel of a tenant.
type ChannelConfig struct {
	Type     ChannelType `json:"type"`
	Endpoint string      `json:"endpoint,omitempty"`
	Database string      `json:"database,omitempty"`
}

// Routing names the tenant's source database and its channel configurations.
type Routing struct {
	SourceDatabase string          `json:"source_database"`
	Channels       []ChannelConfig `json:"channels"`
}

type Tenant struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	Routing   *Routing  `db:"routing" json:"routing,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasRouting reports whether the tenant can be routed to a source database.
func (t *Tenant) HasRouting() bool {
	return t.Routing != nil && strings.TrimSpace(t.Routing.SourceDatabase) != ""
}

// RoutingKey is the source database name, or "" when the tenant has no routing.
func (t *Tenant) RoutingKey() string {
	if !t.HasRouting() {
		return ""
	}
	return strings.TrimSpace(t.Routing.SourceDatabase)
}

func (t *Tenant) FindChannel(ct ChannelType) (ChannelConfig, bool) {
	if t.Routing == nil {
		return ChannelConfig{}, false
	}
	for _, c := range t.Routing.Channels {
		if c.Type == ct {
			return c, true
		}
	}
	return ChannelConfig{}, false
}

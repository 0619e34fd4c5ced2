// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaign-monitor/internal/errors"
	"github.com/unclebandit/campaign-monitor/internal/model"
	"github.com/unclebandit/campaign-monitor/internal/repository"
)

// CampaignHandler serves the consolidated monitoring records
type CampaignHandler struct {
	Tenants   repository.TenantRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Log       *zap.Logger
}

// NewCampaignHandler creates a new CampaignHandler with the given repositories
func NewCampaignHandler(tenants repository.TenantRepositoryInterface, campaigns repository.CampaignRepositoryInterface, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{Tenants: tenants, Campaigns: campaigns, Log: log}
}

// ListCampaignsHandler returns every monitored campaign of a tenant
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	if _, err := h.Tenants.FindByName(r.Context(), tenant); err != nil {
		h.fail(w, err)
		return
	}

	campaigns, err := h.Campaigns.ListByTenant(r.Context(), tenant)
	if err != nil {
		h.fail(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []*model.MonitoredCampaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// GetCampaignHandler returns one monitored campaign by its source id
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	sourceID := chi.URLParam(r, "sourceId")

	c, err := h.Campaigns.FindByTenantAndSourceID(r.Context(), tenant, sourceID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if c == nil {
		h.fail(w, appErrors.NewCampaignNotFound(tenant, sourceID))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HealthzHandler reports liveness
func (h *CampaignHandler) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CampaignHandler) fail(w http.ResponseWriter, err error) {
	if appErrors.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.Log.Error("❌ request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// internal/controller/monitor_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaign-monitor/internal/errors"
	"github.com/unclebandit/campaign-monitor/internal/service"
)

type MonitorController struct {
	Runner service.CycleRunner
	Log    *zap.Logger
}

// RunCycle triggers a monitoring cycle outside the worker schedule and returns its report.
// A cycle that is already running is reported as 409.
func (c *MonitorController) RunCycle(w http.ResponseWriter, r *http.Request) {
	report, err := c.Runner.RunCycle(r.Context())
	if err != nil {
		if errors.Is(err, appErrors.ErrCycleInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		c.Log.Error("❌ manual cycle failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c.Log.Info("✅ manual cycle finished", zap.String("cycle_id", report.CycleID))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

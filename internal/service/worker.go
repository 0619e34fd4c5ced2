package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaign-monitor/internal/errors"
)

// CycleRunner runs one monitoring cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// MonitorWorker runs a cycle, sleeps Interval, and repeats until its context is cancelled.
type MonitorWorker struct {
	Runner   CycleRunner
	Interval time.Duration
	Log      *zap.Logger
}

// Constructor
func NewMonitorWorker(runner CycleRunner, interval time.Duration, log *zap.Logger) *MonitorWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MonitorWorker{Runner: runner, Interval: interval, Log: log}
}

// Start blocks until ctx is done. A failed cycle never stops the loop.
func (w *MonitorWorker) Start(ctx context.Context) {
	w.Log.Info("monitor worker started", zap.Duration("interval", w.Interval))
	for {
		w.runOnce(ctx)

		timer := time.NewTimer(w.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.Log.Info("monitor worker stopped")
			return
		case <-timer.C:
		}
	}
}

func (w *MonitorWorker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.Log.Error("monitoring cycle panicked", zap.Any("panic", r))
		}
	}()

	if _, err := w.Runner.RunCycle(ctx); err != nil {
		if errors.Is(err, appErrors.ErrCycleInProgress) {
			w.Log.Info("previous cycle still running, skipping")
			return
		}
		w.Log.Error("monitoring cycle failed", zap.Error(err))
	}
}

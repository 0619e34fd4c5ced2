// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-monitor/internal/config"
	"github.com/unclebandit/campaign-monitor/internal/controller"
	"github.com/unclebandit/campaign-monitor/internal/db"
	"github.com/unclebandit/campaign-monitor/internal/handler"
	"github.com/unclebandit/campaign-monitor/internal/logging"
	"github.com/unclebandit/campaign-monitor/internal/queue"
	"github.com/unclebandit/campaign-monitor/internal/repository"
	"github.com/unclebandit/campaign-monitor/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !cfg.EnvFileLoaded {
		log.Warn("⚠️ No .env file found, relying on OS environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Consolidated store and tenant source databases
	store, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to consolidated store", zap.Error(err))
	}
	defer store.Close()

	sources := db.NewDSNRegistry(cfg.SourceDSN)
	defer sources.Close()

	tenantRepo := &repository.TenantRepository{DB: store}
	campaignRepo := &repository.CampaignRepository{DB: store}
	sourceRepo := &repository.SourceRepository{Sources: sources}

	// Monitoring events go to RabbitMQ when configured, otherwise to the local alert subscriber
	var q queue.Queue
	if cfg.AMQPURL != "" {
		conn, ch, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		defer ch.Close()
		q = queue.NewAMQPQueue(ch, log)
	} else {
		mem := queue.NewInMemoryQueue(log)
		if err := queue.StartMonitoringAlertSubscriber(mem, log); err != nil {
			log.Fatal("failed to subscribe alerts", zap.Error(err))
		}
		defer mem.Wait()
		q = mem
	}

	monitor := &service.MonitorService{
		TenantRepo:   tenantRepo,
		SourceRepo:   sourceRepo,
		CampaignRepo: campaignRepo,
		Reconciler: &service.ReconcileService{
			SourceRepo: sourceRepo,
			Log:        log,
		},
		Queue:         q,
		Log:           log,
		TenantWorkers: cfg.TenantWorkers,
	}

	worker := service.NewMonitorWorker(monitor, cfg.Interval, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	campaignHandler := handler.NewCampaignHandler(tenantRepo, campaignRepo, log)
	monitorController := &controller.MonitorController{Runner: monitor, Log: log}

	r := chi.NewRouter()
	r.Get("/healthz", campaignHandler.HealthzHandler)

	// Monitoring routes
	r.Get("/tenants/{tenant}/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/tenants/{tenant}/campaigns/{sourceId}", campaignHandler.GetCampaignHandler)
	r.Post("/cycles", monitorController.RunCycle)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("🚀 Server running", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	<-workerDone
}

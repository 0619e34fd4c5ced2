package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-monitor/internal/config"
	"github.com/unclebandit/campaign-monitor/internal/logging"
	"github.com/unclebandit/campaign-monitor/internal/queue"
)

// The alert worker consumes monitoring events from RabbitMQ and flags campaigns
// that just entered Failed or ExecutionDelayed.
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

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the alert worker")
	}

	conn, ch, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()
	defer ch.Close()

	q := queue.NewAMQPQueue(ch, log)
	if err := queue.StartMonitoringAlertSubscriber(q, log); err != nil {
		log.Fatal("Failed to register consumer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	log.Info("👷 Alert worker started. Waiting for monitoring events...", zap.String("topic", queue.TopicMonitoring))
	select {
	case <-ctx.Done():
		log.Info("alert worker shutting down")
	case err := <-closed:
		log.Error("RabbitMQ connection closed", zap.Any("reason", err))
	}
}

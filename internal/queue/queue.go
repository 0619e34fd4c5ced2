package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-monitor/internal/model"
)

// TopicMonitoring carries model.MonitoringEvent payloads.
const TopicMonitoring = "campaign_monitoring"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to local subscribers with retry
type InMemoryQueue struct {
	Log        *zap.Logger
	Backoff    time.Duration
	MaxRetries int

	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup
}

func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		Log:        log,
		Backoff:    500 * time.Millisecond,
		MaxRetries: 3,
		handlers:   make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: q.MaxRetries}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()

	for {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		q.Log.Warn("job failed",
			zap.String("topic", job.Topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		if job.RetryCount > job.MaxRetries {
			q.Log.Error("job permanently failed", zap.String("topic", job.Topic), zap.Int("attempts", job.RetryCount))
			return
		}
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// DecodeMonitoringEvent accepts an event value (in-memory delivery) or a JSON body (AMQP delivery).
func DecodeMonitoringEvent(payload any) (model.MonitoringEvent, error) {
	switch p := payload.(type) {
	case model.MonitoringEvent:
		return p, nil
	case *model.MonitoringEvent:
		if p == nil {
			return model.MonitoringEvent{}, fmt.Errorf("nil monitoring event")
		}
		return *p, nil
	case []byte:
		var ev model.MonitoringEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			return model.MonitoringEvent{}, fmt.Errorf("decode monitoring event: %w", err)
		}
		return ev, nil
	default:
		return model.MonitoringEvent{}, fmt.Errorf("unexpected payload type %T", payload)
	}
}

// StartMonitoringAlertSubscriber logs an alert for every campaign that enters Failed or ExecutionDelayed.
func StartMonitoringAlertSubscriber(q Queue, log *zap.Logger) error {
	return q.Subscribe(TopicMonitoring, func(payload any) error {
		ev, err := DecodeMonitoringEvent(payload)
		if err != nil {
			log.Warn("dropping invalid monitoring event", zap.Error(err))
			return nil
		}

		if !ev.NeedsAttention() {
			log.Debug("monitoring event",
				zap.String("tenant", ev.Tenant),
				zap.String("campaign_id", ev.SourceCampaignID),
				zap.String("status", string(ev.MonitoringStatus)))
			return nil
		}

		log.Warn("⚠️ campaign needs attention",
			zap.String("tenant", ev.Tenant),
			zap.String("campaign_id", ev.SourceCampaignID),
			zap.String("campaign", ev.Name),
			zap.String("status", string(ev.MonitoringStatus)),
			zap.String("previous_status", string(ev.PreviousStatus)),
			zap.String("message", ev.Message))
		return nil
	})
}

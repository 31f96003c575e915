package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/model"
)

// TopicNotifications carries every model.Event the worker turns into notifications.
const TopicNotifications = "notifications"

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prdesk_queue_published_total",
		Help: "Events published per topic.",
	}, []string{"topic"})
	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prdesk_queue_failed_total",
		Help: "Events that exhausted their retries per topic.",
	}, []string{"topic"})
)

// Handler processes one event. A returned error triggers a retry.
type Handler func(ctx context.Context, ev model.Event) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, ev model.Event) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue delivers events to in-process subscribers with retry.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

// WithBackoff overrides the base retry delay.
func (q *InMemoryQueue) WithBackoff(d time.Duration) *InMemoryQueue {
	q.backoff = d
	return q
}

// job wraps an event with retry info
type job struct {
	topic      string
	event      model.Event
	retryCount int
}

// Publish sends an event to all subscribers of topic.
func (q *InMemoryQueue) Publish(_ context.Context, topic string, ev model.Event) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}
	publishedTotal.WithLabelValues(topic).Inc()

	for _, h := range handlers {
		q.wg.Add(1)
		go q.processJob(h, job{topic: topic, event: ev})
	}
	return nil
}

// processJob retries with linear backoff until maxRetries is exceeded.
func (q *InMemoryQueue) processJob(h Handler, j job) {
	defer q.wg.Done()
	for {
		err := h(context.Background(), j.event)
		if err == nil {
			return
		}

		j.retryCount++
		q.log.Warn("job failed",
			zap.String("topic", j.topic),
			zap.String("kind", j.event.Kind),
			zap.Int("attempt", j.retryCount),
			zap.Error(err),
		)
		if j.retryCount > q.maxRetries {
			failedTotal.WithLabelValues(j.topic).Inc()
			q.log.Error("job permanently failed", zap.String("topic", j.topic), zap.String("kind", j.event.Kind))
			return
		}
		time.Sleep(time.Duration(j.retryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)

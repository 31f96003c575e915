package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/model"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes events as JSON to durable RabbitMQ queues named after the topic.
type AMQPQueue struct {
	conn       *amqp.Connection
	mu         sync.Mutex
	pub        *amqp.Channel
	declared   map[string]bool
	log        *zap.Logger
	maxRetries int
}

func DialAMQP(url string, log *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return &AMQPQueue{
		conn:       conn,
		pub:        ch,
		declared:   map[string]bool{},
		log:        log,
		maxRetries: 3,
	}, nil
}

func declare(ch *amqp.Channel, topic string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

func (q *AMQPQueue) Publish(_ context.Context, topic string, ev model.Event) error {
	return q.publish(topic, ev, 0)
}

func (q *AMQPQueue) publish(topic string, ev model.Event, retries int32) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.declared[topic] {
		if _, err := declare(q.pub, topic); err != nil {
			return fmt.Errorf("declare queue %s: %w", topic, err)
		}
		q.declared[topic] = true
	}
	err = q.pub.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: retries},
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	publishedTotal.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe consumes topic on its own channel. Failed deliveries are
// republished with an incremented retry header until maxRetries.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := declare(ch, topic); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			q.handleDelivery(topic, d, handler)
		}
		q.log.Info("amqp consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(topic string, d amqp.Delivery, handler Handler) {
	var ev model.Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		q.log.Warn("dropping invalid event", zap.String("topic", topic), zap.Error(err))
		_ = d.Ack(false)
		return
	}

	err := handler(context.Background(), ev)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	q.log.Warn("event failed", zap.String("topic", topic), zap.String("kind", ev.Kind), zap.Int32("retries", retries), zap.Error(err))
	if int(retries) < q.maxRetries {
		if perr := q.publish(topic, ev, retries+1); perr != nil {
			q.log.Error("requeue failed", zap.Error(perr))
			_ = d.Nack(false, true)
			return
		}
	} else {
		failedTotal.WithLabelValues(topic).Inc()
	}
	_ = d.Ack(false)
}

func retryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pub != nil {
		q.pub.Close()
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)

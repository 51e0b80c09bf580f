package alarms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/roomdang/roomdang-backend/pkg/config"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/roomdang/roomdang-backend/pkg/metrics"
)

const notificationBindingKey = "notification.#"

// BrokerConsumer drains the notification queue and pushes events to
// locally connected receivers. Failed deliveries are re-published with an
// incremented retry count until the cap, then rejected to the DLQ.
type BrokerConsumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string

	dispatcher *Dispatcher
	publisher  Publisher
	logg       *logger.Logger
	broker     *metrics.BrokerMetrics
}

// NewBrokerConsumer dials the broker, declares the work queue bound to
// every notification routing key, and wires the dead-letter exchange.
func NewBrokerConsumer(cfg config.AMQPConfig, dispatcher *Dispatcher, publisher Publisher, logg *logger.Logger, broker *metrics.BrokerMetrics) (*BrokerConsumer, error) {
	if !cfg.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "amqp url required")
	}
	if dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatcher required")
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial amqp broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open amqp channel")
	}

	if err := declareExchanges(channel, cfg.Exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set prefetch")
	}

	queueName := cfg.QueuePrefix
	queue, err := channel.QueueDeclare(queueName, true, false, false, false, amqp091.Table{
		"x-dead-letter-exchange": cfg.Exchange + dlqSuffix,
	})
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "declare notification queue")
	}

	if err := channel.QueueBind(queue.Name, notificationBindingKey, cfg.Exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind notification queue")
	}

	dlqQueue := queueName + dlqSuffix
	if _, err := channel.QueueDeclare(dlqQueue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "declare dead-letter queue")
	}
	if err := channel.QueueBind(dlqQueue, notificationBindingKey, cfg.Exchange+dlqSuffix, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind dead-letter queue")
	}

	return &BrokerConsumer{
		conn:       conn,
		channel:    channel,
		queueName:  queue.Name,
		dispatcher: dispatcher,
		publisher:  publisher,
		logg:       logg,
		broker:     broker,
	}, nil
}

// Run blocks consuming deliveries until the context is cancelled or the
// broker drops the channel.
func (c *BrokerConsumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register consumer")
	}

	c.logg.Info(ctx, "notification consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return pkgerrors.New(pkgerrors.CodeDependency, "amqp delivery channel closed")
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *BrokerConsumer) handle(ctx context.Context, delivery amqp091.Delivery) {
	started := time.Now()
	c.broker.IncConsumed()

	var event NotificationEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		c.broker.IncProcessingFailed()
		c.logg.Error(ctx, "malformed notification event", err)
		// Unparseable payloads can never succeed; straight to the DLQ.
		if err := delivery.Reject(false); err != nil {
			c.logg.Error(ctx, "reject malformed event", err)
		}
		return
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":    event.EventID,
		"receiver_id": event.ReceiverID,
		"retry_count": event.RetryCount,
	})

	if err := c.process(ctx, event); err != nil {
		c.broker.IncProcessingFailed()
		c.retryOrReject(ctx, delivery, event, err)
		return
	}

	c.broker.ObserveProcessing(time.Since(started))
	if err := delivery.Ack(false); err != nil {
		c.logg.Error(ctx, "ack notification event", err)
	}
}

func (c *BrokerConsumer) process(ctx context.Context, event NotificationEvent) error {
	if event.ReceiverID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification event missing receiver")
	}
	// An offline receiver returns nil here; the persisted alarm covers them.
	return c.dispatcher.SendEvent(ctx, event)
}

func (c *BrokerConsumer) retryOrReject(ctx context.Context, delivery amqp091.Delivery, event NotificationEvent, cause error) {
	if event.MaxRetryReached() {
		c.logg.Error(ctx, "notification retries exhausted, dead-lettering", cause)
		if err := delivery.Reject(false); err != nil {
			c.logg.Error(ctx, "reject exhausted event", err)
		}
		return
	}

	if c.publisher == nil {
		if err := delivery.Reject(false); err != nil {
			c.logg.Error(ctx, "reject event without publisher", err)
		}
		return
	}

	if err := c.publisher.Publish(ctx, event.WithRetry()); err != nil {
		c.logg.Error(ctx, "republish notification event", err)
		// Keep the original delivery alive so the broker redelivers it.
		if err := delivery.Nack(false, true); err != nil {
			c.logg.Error(ctx, "nack notification event", err)
		}
		return
	}

	c.logg.Warn(ctx, "notification delivery failed, retry scheduled")
	if err := delivery.Ack(false); err != nil {
		c.logg.Error(ctx, "ack retried event", err)
	}
}

// Close tears down the channel and connection.
func (c *BrokerConsumer) Close() error {
	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

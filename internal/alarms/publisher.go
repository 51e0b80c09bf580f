package alarms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/roomdang/roomdang-backend/pkg/config"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/roomdang/roomdang-backend/pkg/metrics"
)

const (
	// Per-priority message TTLs. A stale live notification is worthless,
	// so high-priority events expire quickly and the rest a bit later.
	highPriorityExpiration   = "60000"
	normalPriorityExpiration = "300000"

	dlqSuffix = ".dlq"
)

// BrokerPublisher sends notification events to the topic exchange so any
// instance holding the receiver's live connection can deliver them.
type BrokerPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	cfg     config.AMQPConfig
	logg    *logger.Logger
	broker  *metrics.BrokerMetrics
}

// NewBrokerPublisher dials the broker and declares the notification topic
// exchange plus its dead-letter twin.
func NewBrokerPublisher(cfg config.AMQPConfig, logg *logger.Logger, broker *metrics.BrokerMetrics) (*BrokerPublisher, error) {
	if !cfg.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "amqp url required")
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

	return &BrokerPublisher{
		conn:    conn,
		channel: channel,
		cfg:     cfg,
		logg:    logg,
		broker:  broker,
	}, nil
}

func declareExchanges(channel *amqp091.Channel, exchange string) error {
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "declare notification exchange")
	}
	if err := channel.ExchangeDeclare(exchange+dlqSuffix, "topic", true, false, false, false, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "declare dead-letter exchange")
	}
	return nil
}

// Publish routes the event by category and priority tier. High-priority
// events expire sooner; see the TTL constants above.
func (p *BrokerPublisher) Publish(ctx context.Context, event NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal notification event")
	}

	expiration := normalPriorityExpiration
	if event.HighPriority() {
		expiration = highPriorityExpiration
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.cfg.Exchange,
		event.RoutingKey(),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.Timestamp,
			Expiration:   expiration,
			Headers: amqp091.Table{
				"x-retry-count": int32(event.RetryCount),
				"x-priority":    int32(event.Priority),
				"x-receiver-id": event.ReceiverID,
			},
		},
	)
	if err != nil {
		p.broker.IncPublishFailed()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish notification event")
	}

	p.broker.IncPublished()
	return nil
}

// Close tears down the channel and connection.
func (p *BrokerPublisher) Close() error {
	var channelErr, connErr error
	if p.channel != nil {
		channelErr = p.channel.Close()
	}
	if p.conn != nil {
		connErr = p.conn.Close()
	}
	if channelErr != nil {
		return fmt.Errorf("close amqp channel: %w", channelErr)
	}
	if connErr != nil {
		return fmt.Errorf("close amqp connection: %w", connErr)
	}
	return nil
}

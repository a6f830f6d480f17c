package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName       = "order.events"
	DeadLetterExchange = "order.events.dlx"

	PaidRoutingKey  = "order.paid"
	PaidQueueName   = "order.paid.q"
	ParkedQueueName = "order.paid.parked.q"
)

// RabbitProducer implements usecase.EventPublisher.
type RabbitProducer struct {
	ch *amqp.Channel
}

// DeclarePaidQueue declares the exchange, the durable order-paid queue, its
// dead-letter exchange with a parked queue for exhausted deliveries, and the
// bindings. Safe to call from both publisher and consumer processes;
// whoever starts first sets the topology up.
func DeclarePaidQueue(ch *amqp.Channel) (amqp.Queue, error) {
	// 1. declare exchanges (topic type, durable)
	if err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(
		DeadLetterExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare dlx: %w", err)
	}

	// 2. parked queue: where a Nack(requeue=false) ends up instead of being
	// discarded. Drained by operators, not by this code.
	parked, err := ch.QueueDeclare(
		ParkedQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare parked queue: %w", err)
	}
	if err := ch.QueueBind(parked.Name, PaidRoutingKey, DeadLetterExchange, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("parked queue bind: %w", err)
	}

	// 3. main queue, dead-lettering into the DLX
	q, err := ch.QueueDeclare(
		PaidQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-dead-letter-exchange": DeadLetterExchange},
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue: %w", err)
	}

	// 4. bind queue -> exchange
	if err := ch.QueueBind(
		q.Name,
		PaidRoutingKey,
		ExchangeName,
		false, // no-wait
		nil,
	); err != nil {
		return amqp.Queue{}, fmt.Errorf("queue bind: %w", err)
	}

	return q, nil
}

// NewRabbitProducer sets up the topology once at startup.
func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if _, err := DeclarePaidQueue(ch); err != nil {
		return nil, err
	}

	// publisher confirms
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch}, nil
}

var _ usecase.EventPublisher = (*RabbitProducer)(nil)

// PublishOrderPaid enqueues one order-paid event. The message is persistent;
// delivery to the fulfillment worker is at-least-once.
func (p *RabbitProducer) PublishOrderPaid(ctx context.Context, msg usecase.OrderPaidMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}

	if err := p.ch.PublishWithContext(
		ctx,
		ExchangeName,
		PaidRoutingKey,
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

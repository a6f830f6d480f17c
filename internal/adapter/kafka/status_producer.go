package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
)

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true
	cfg.Net.DialTimeout = 5 * time.Second
	return sarama.NewSyncProducer(brokers, cfg)
}

// StatusProducer emits one record per order status transition, keyed by
// order id so transitions of the same order land in one partition in order.
// Consumed by analytics/reconciliation, not by this service.
type StatusProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewStatusProducer(producer sarama.SyncProducer, topic string) *StatusProducer {
	return &StatusProducer{producer: producer, topic: topic}
}

var _ usecase.StatusAuditor = (*StatusProducer)(nil)

func (p *StatusProducer) PublishStatusChanged(_ context.Context, msg usecase.OrderStatusChangedMsg) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.OrderID),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *StatusProducer) Close() error { return p.producer.Close() }

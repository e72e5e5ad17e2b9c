// Package notify carries order lifecycle events out of the core. The
// Kafka emitter publishes them keyed by order id; the log emitter is the
// fallback when no brokers are configured.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/remate/marketplace/internal/core/domain"
)

const DefaultTopic = "order-events"

type KafkaEmitter struct {
	writer *kafka.Writer
}

// NewKafkaEmitter builds an emitter from a comma separated broker list.
func NewKafkaEmitter(brokersCSV, topic string) *KafkaEmitter {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Emit publishes the event keyed by order id so one order's events stay
// ordered within a partition.
func (e *KafkaEmitter) Emit(ctx context.Context, event domain.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

// Package report handles Kafka event production for host inventory events.
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/fleetscan/fleetscan-backend/model"
)

// ReportProducer handles sending inventory events to Kafka
type ReportProducer struct {
	Writer *kafka.Writer
}

// NewReportProducer initializes a new Kafka writer for inventory events
func NewReportProducer(brokers []string, topic string) *ReportProducer {
	return &ReportProducer{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishInventoryReported sends the event to the Kafka topic
func (p *ReportProducer) PublishInventoryReported(ctx context.Context, inventory model.InventoryReport) error {
	event := InventoryReportedEvent{
		EventType:     "inventory.reported",
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: "v1",
		Report:        inventory,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(inventory.Hostname),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *ReportProducer) Close() error {
	return p.Writer.Close()
}

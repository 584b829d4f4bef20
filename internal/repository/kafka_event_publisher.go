package repository

import (
	"context"
	"time"

	"AlphaWalk/internal/domain/models"
	pkgkafka "AlphaWalk/pkg/kafka"
)

// KafkaEventPublisher emits rebalance audit records and run summaries to a
// Kafka topic, keyed by run id so per-run ordering is preserved.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

type rebalanceEvent struct {
	Event     string                 `json:"event"`
	RunID     string                 `json:"run_id"`
	EmittedAt time.Time              `json:"emitted_at"`
	Record    models.RebalanceRecord `json:"record"`
}

type runSummaryEvent struct {
	Event     string                `json:"event"`
	RunID     string                `json:"run_id"`
	EmittedAt time.Time             `json:"emitted_at"`
	Summary   models.SummaryMetrics `json:"summary"`
}

func (p *KafkaEventPublisher) PublishRebalance(ctx context.Context, runID string, rec models.RebalanceRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(runID), rebalanceEvent{
		Event:     "rebalance",
		RunID:     runID,
		EmittedAt: time.Now().UTC(),
		Record:    rec,
	})
}

func (p *KafkaEventPublisher) PublishRunSummary(ctx context.Context, runID string, summary models.SummaryMetrics) error {
	return p.producer.Publish(ctx, p.topic, []byte(runID), runSummaryEvent{
		Event:     "run_summary",
		RunID:     runID,
		EmittedAt: time.Now().UTC(),
		Summary:   summary,
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

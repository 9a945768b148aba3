package repository

import (
	"context"
	"errors"

	"FarePull/internal/domain/models"
	domrepo "FarePull/internal/domain/repository"
	pkgkafka "FarePull/pkg/kafka"
)

// Topics names the Kafka topics the engine writes to.
type Topics struct {
	Anomalies string
	Combos    string
	Summaries string
	Logs      string
}

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaEvents publishes engine output as JSON. It also serves as the log digest sink.
type KafkaEvents struct {
	producer batchProducer
	topics   Topics
}

var _ domrepo.EventPublisher = (*KafkaEvents)(nil)

func NewKafkaEvents(producer *pkgkafka.Producer, topics Topics) *KafkaEvents {
	return &KafkaEvents{producer: producer, topics: topics}
}

// PublishAnomalies keys by flight number so one flight's history stays ordered.
func (k *KafkaEvents) PublishAnomalies(ctx context.Context, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(anomalies))
	for i, a := range anomalies {
		msgs[i] = pkgkafka.Message{Key: []byte(a.FlightNumber), Value: a}
	}
	return k.producer.PublishBatch(ctx, k.topics.Anomalies, msgs)
}

func (k *KafkaEvents) PublishCombos(ctx context.Context, combos []models.RoundTripCombo) error {
	if len(combos) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(combos))
	for i, c := range combos {
		msgs[i] = pkgkafka.Message{Key: []byte(c.Pair.Departure + "|" + c.Pair.Return), Value: c}
	}
	return k.producer.PublishBatch(ctx, k.topics.Combos, msgs)
}

func (k *KafkaEvents) PublishSummary(ctx context.Context, s models.CycleSummary) error {
	return k.producer.PublishBatch(ctx, k.topics.Summaries, []pkgkafka.Message{{Key: []byte(s.ID), Value: s}})
}

// PublishMessage satisfies logger.Publisher. An empty topic falls back to the logs topic.
func (k *KafkaEvents) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	if topic == "" {
		topic = k.topics.Logs
	}
	if topic == "" {
		return errors.New("kafka events: no topic for log digest")
	}
	return k.producer.PublishBatch(ctx, topic, []pkgkafka.Message{{Value: payload}})
}

func (k *KafkaEvents) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}

// NoopEvents is used when Kafka is disabled.
type NoopEvents struct{}

var _ domrepo.EventPublisher = NoopEvents{}

func (NoopEvents) PublishAnomalies(context.Context, []models.Anomaly) error     { return nil }
func (NoopEvents) PublishCombos(context.Context, []models.RoundTripCombo) error { return nil }
func (NoopEvents) PublishSummary(context.Context, models.CycleSummary) error    { return nil }
func (NoopEvents) Close() error                                                 { return nil }

package repository

import (
	"context"
	"encoding/json"
	"testing"

	"FarePull/internal/domain/models"
	pkgkafka "FarePull/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentBatch struct {
	topic string
	msgs  []pkgkafka.Message
}

type fakeProducer struct {
	sent   []sentBatch
	closed bool
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	f.sent = append(f.sent, sentBatch{topic: topic, msgs: msgs})
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func testTopics() Topics {
	return Topics{Anomalies: "fp.anomalies", Combos: "fp.combos", Summaries: "fp.cycles", Logs: "fp.logs"}
}

func TestKafkaEventsAnomaliesKeyedByFlight(t *testing.T) {
	fp := &fakeProducer{}
	ev := &KafkaEvents{producer: fp, topics: testTopics()}

	err := ev.PublishAnomalies(context.Background(), []models.Anomaly{
		{Kind: models.KindZeroPrice, FlightNumber: "FO5000"},
		{Kind: models.KindNegativePrice, FlightNumber: "FO5001"},
	})
	require.NoError(t, err)
	require.Len(t, fp.sent, 1)
	assert.Equal(t, "fp.anomalies", fp.sent[0].topic)
	assert.Equal(t, []byte("FO5001"), fp.sent[0].msgs[1].Key)

	raw, err := json.Marshal(fp.sent[0].msgs[0].Value)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ZERO_PRICE"`)
}

func TestKafkaEventsSkipsEmptyBatches(t *testing.T) {
	fp := &fakeProducer{}
	ev := &KafkaEvents{producer: fp, topics: testTopics()}
	ctx := context.Background()

	require.NoError(t, ev.PublishAnomalies(ctx, nil))
	require.NoError(t, ev.PublishCombos(ctx, nil))
	assert.Empty(t, fp.sent)
}

func TestKafkaEventsLogDigestTopic(t *testing.T) {
	fp := &fakeProducer{}
	ev := &KafkaEvents{producer: fp, topics: testTopics()}
	ctx := context.Background()

	require.NoError(t, ev.PublishMessage(ctx, "", map[string]int{"count": 3}))
	require.NoError(t, ev.PublishMessage(ctx, "custom", "x"))
	assert.Equal(t, "fp.logs", fp.sent[0].topic)
	assert.Equal(t, "custom", fp.sent[1].topic)

	ev.topics.Logs = ""
	assert.Error(t, ev.PublishMessage(ctx, "", "x"))

	require.NoError(t, ev.Close())
	assert.True(t, fp.closed)
}

package outbox

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestProducerReusesWriterPerTopic(t *testing.T) {
	producer := NewKafkaProducer([]string{"broker-1:9092"}, zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { _ = producer.Close() })

	first := producer.writerForTopic("carbon_activity_events")
	second := producer.writerForTopic("carbon_activity_events")
	other := producer.writerForTopic("carbon_anchor_events")

	require.Same(t, first, second)
	require.NotSame(t, first, other)
}

func TestProducerWriterSettings(t *testing.T) {
	producer := NewKafkaProducer([]string{"broker-1:9092"}, zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { _ = producer.Close() })

	writer := producer.writerForTopic("carbon_activity_events")

	require.Equal(t, "carbon_activity_events", writer.Topic)
	require.Equal(t, kafka.RequireAll, writer.RequiredAcks)
	require.Equal(t, kafka.Snappy, writer.Compression)
	require.IsType(t, &kafka.Hash{}, writer.Balancer, "partition-key hashing keeps per-user ordering")
	require.False(t, writer.Async)
	require.NotNil(t, writer.ErrorLogger)
}

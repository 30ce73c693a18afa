package outbox

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubTopicWriter struct {
	messages []kafka.Message
	closed   bool
}

func (w *stubTopicWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubTopicWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducerStampsTopic(t *testing.T) {
	stub := &stubTopicWriter{}
	producer := &KafkaProducer{writer: stub}

	err := producer.WriteMessages(context.Background(), "progress.events",
		kafka.Message{Key: []byte("user-1"), Value: []byte("a")},
		kafka.Message{Key: []byte("user-2"), Value: []byte("b")},
	)
	require.NoError(t, err)

	require.Len(t, stub.messages, 2)
	for _, msg := range stub.messages {
		require.Equal(t, "progress.events", msg.Topic)
	}

	require.NoError(t, producer.Close())
	require.True(t, stub.closed)
}

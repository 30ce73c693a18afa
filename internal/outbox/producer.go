package outbox

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// topicWriter is the subset of kafka.Writer the producer relies on.
type topicWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes outbox batches through one shared writer.
// The topic travels on each message, so a single connection pool and
// balancer serve every outbound topic.
type KafkaProducer struct {
	writer topicWriter
}

// NewKafkaProducer creates a KafkaProducer for the given brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr: kafka.TCP(brokers...),
			// Records are keyed by user id; hashing keeps one user's events
			// on one partition, preserving their order.
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		},
	}
}

// WriteMessages stamps the topic onto each message and publishes the
// batch.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	stamped := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		stamped[i] = msg
	}
	return p.writer.WriteMessages(ctx, stamped...)
}

// Close releases the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

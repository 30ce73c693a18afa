package consumer

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Writer exposes the minimal kafka.Writer interface needed for dead
// letter publication.
type Writer interface {
	WriteMessages(context.Context, ...kafka.Message) error
}

// DeadLetterWriter republishes failed messages to a dead letter topic,
// preserving the original value and annotating the failure.
type DeadLetterWriter struct {
	writer Writer
	topic  string
}

// NewDeadLetterWriter constructs a DeadLetterWriter targeting topic.
func NewDeadLetterWriter(writer Writer, topic string) *DeadLetterWriter {
	return &DeadLetterWriter{writer: writer, topic: topic}
}

// DeadLetter publishes the failed message with its failure reason and
// origin recorded in headers.
func (w *DeadLetterWriter) DeadLetter(ctx context.Context, msg kafka.Message, reason error) error {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "error_reason", Value: []byte(reason.Error())},
		kafka.Header{Key: "original_topic", Value: []byte(msg.Topic)},
	)
	return w.writer.WriteMessages(ctx, kafka.Message{
		Topic:   w.topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
}

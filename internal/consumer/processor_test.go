package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

func envelopeMessage(t *testing.T, topic string, env domain.Envelope) kafka.Message {
	t.Helper()
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{
		Topic:     topic,
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Key:       []byte(env.UserID),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(env.EventID)},
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := envelopeMessage(t, "booking_events", domain.Envelope{
		EventID:   "evt-1",
		EventType: domain.EventBookingCompleted,
		UserID:    "user-1",
		Payload:   json.RawMessage(`{"booking_id":"b-1","user_id":"user-1","duration_min":45}`),
		EmittedAt: time.Now().UTC(),
	})

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "evt-1", handler.last.Envelope.EventID)
	require.Equal(t, domain.EventBookingCompleted, handler.last.Envelope.EventType)
	require.Equal(t, "user-1", handler.last.Envelope.UserID)
}

func TestProcessorDeadLettersAfterRetryExhaustion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failing := envelopeMessage(t, "booking_events", domain.Envelope{
		EventID:   "evt-2",
		EventType: domain.EventBookingCompleted,
		UserID:    "user-1",
	})
	healthy := envelopeMessage(t, "booking_events", domain.Envelope{
		EventID:   "evt-2b",
		EventType: domain.EventBookingCompleted,
		UserID:    "user-2",
	})
	healthy.Offset = failing.Offset + 1

	reader := &stubReader{
		messages: []kafka.Message{failing, healthy},
		after:    contextCanceled,
	}
	handler := &stubHandler{
		err:    fmt.Errorf("%w: schedule service down", domain.ErrUpstreamUnavailable),
		errFor: "evt-2",
	}
	sink := &stubDeadLetterer{}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithDeadLetterer(sink),
		WithBackoff(time.Millisecond))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The failing message is retried in place, then dead-lettered and
	// committed. A commit after the next message would mark its offset
	// consumed anyway, so skipping the dead letter would lose the event.
	require.Equal(t, maxAttempts+1, handler.calls)
	require.Equal(t, 1, sink.calls)
	require.Equal(t, 2, reader.commitCalls)
	require.ErrorIs(t, sink.lastReason, domain.ErrUpstreamUnavailable)
}

func TestProcessorDeadLettersTerminalError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := envelopeMessage(t, "booking_events", domain.Envelope{
		EventID:   "evt-3",
		EventType: domain.EventBookingCompleted,
		UserID:    "user-1",
	})

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: fmt.Errorf("%w: duration_min must be >= 0", domain.ErrValidation)}
	sink := &stubDeadLetterer{}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithDeadLetterer(sink))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Terminal failures go to the dead letter sink exactly once and the
	// offset is committed so the partition keeps moving.
	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, sink.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.ErrorIs(t, sink.lastReason, domain.ErrValidation)
}

func TestProcessorCommitsMalformedMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic: "booking_events",
		Value: []byte("not json"),
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}
	sink := &stubDeadLetterer{}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithDeadLetterer(sink))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 0, handler.calls)
	require.Equal(t, 1, sink.calls)
	require.Equal(t, 1, reader.commitCalls)
}

func TestDecodeMessageFallsBackToHeader(t *testing.T) {
	msg := kafka.Message{
		Topic: "booking_events",
		Value: []byte(`{"event_id":"evt-4","user_id":"user-1","payload":{}}`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventProgramCompleted)},
		},
	}

	decoded, err := decodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, domain.EventProgramCompleted, decoded.Envelope.EventType)
}

func TestDecodeMessageRejectsMissingEventID(t *testing.T) {
	msg := kafka.Message{
		Topic: "booking_events",
		Value: []byte(`{"event_type":"booking.completed","payload":{}}`),
	}

	_, err := decodeMessage(msg)
	require.Error(t, err)
}

func TestDeadLetterWriterAnnotatesFailure(t *testing.T) {
	writer := &stubWriter{}
	dl := NewDeadLetterWriter(writer, "progress.deadletter")

	original := kafka.Message{
		Topic: "booking_events",
		Key:   []byte("user-1"),
		Value: []byte(`{"event_id":"evt-5"}`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventBookingCompleted)},
		},
	}
	require.NoError(t, dl.DeadLetter(context.Background(), original, errors.New("boom")))

	require.Len(t, writer.messages, 1)
	out := writer.messages[0]
	require.Equal(t, "progress.deadletter", out.Topic)
	require.Equal(t, original.Value, out.Value)

	headers := map[string]string{}
	for _, h := range out.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "boom", headers["error_reason"])
	require.Equal(t, "booking_events", headers["original_topic"])
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls  int
	err    error
	errFor string // fail only this event id; empty fails all
	last   Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	if h.errFor != "" && msg.Envelope.EventID != h.errFor {
		return nil
	}
	return h.err
}

type stubDeadLetterer struct {
	calls      int
	lastReason error
}

func (s *stubDeadLetterer) DeadLetter(_ context.Context, _ kafka.Message, reason error) error {
	s.calls++
	s.lastReason = reason
	return nil
}

type stubWriter struct {
	messages []kafka.Message
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

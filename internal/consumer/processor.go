// Package consumer provides the Kafka consumer loop feeding inbound
// integration events to the dispatcher.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded envelopes from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// DeadLetterer receives messages whose handling failed terminally.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg kafka.Message, reason error) error
}

// Message is the decoded representation of a Kafka record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Envelope  domain.Envelope
}

// Retry policy for transient handler failures. After maxAttempts the
// message is dead-lettered and committed so one unreachable upstream
// cannot stall the partition.
const (
	maxAttempts  = 3
	retryBackoff = time.Second
)

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithDeadLetterer routes terminally failed messages to a dead letter
// sink instead of dropping them.
func WithDeadLetterer(dl DeadLetterer) Option {
	return func(p *Processor) {
		p.deadLetterer = dl
	}
}

// WithBackoff overrides the base delay between in-place retries.
func WithBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.backoff = d
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to
// a Handler. Transient failures are retried in place with backoff;
// terminal failures and exhausted retries are dead-lettered and
// committed so the partition keeps moving.
type Processor struct {
	reader       Reader
	handler      Handler
	deadLetterer DeadLetterer
	backoff      time.Duration
	logger       *log.Logger
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		backoff: retryBackoff,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the
// context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			p.deadLetter(ctx, msg, decodeErr)
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if handleErr := p.handle(ctx, event); handleErr != nil {
			if errors.Is(handleErr, context.Canceled) {
				// Shutdown mid-retry: leave the offset uncommitted so
				// the message is redelivered after restart.
				return handleErr
			}
			p.logger.Printf("handler error (event_id=%s, event_type=%s): %v", event.Envelope.EventID, event.Envelope.EventType, handleErr)
			recordHandlerError(event)
			// Terminal failures and exhausted retries both end up here:
			// the group commit tracks the highest fetched offset, so
			// leaving the message uncommitted would not stop later
			// commits from covering it. Dead-lettering keeps a replayable
			// record instead of losing the event.
			p.deadLetter(ctx, msg, handleErr)
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after dead letter: %v", commitErr)
			}
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(event)
		}
	}
}

// handle invokes the handler, retrying transient failures in place.
func (p *Processor) handle(ctx context.Context, event Message) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.handler.Handle(ctx, event)
		if err == nil || !domain.Retryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		recordRetry(event)
		delay := p.backoff * time.Duration(1<<(attempt-1))
		p.logger.Printf("retrying event (event_id=%s, attempt=%d, delay=%s): %v", event.Envelope.EventID, attempt, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func (p *Processor) deadLetter(ctx context.Context, msg kafka.Message, reason error) {
	if p.deadLetterer == nil {
		return
	}
	if err := p.deadLetterer.DeadLetter(ctx, msg, reason); err != nil {
		p.logger.Printf("dead letter publish failed (topic=%s, offset=%d): %v", msg.Topic, msg.Offset, err)
		return
	}
	recordDeadLettered(msg.Topic)
}

func decodeMessage(msg kafka.Message) (Message, error) {
	var env domain.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return Message{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if strings.TrimSpace(env.EventID) == "" {
		return Message{}, errors.New("missing event_id")
	}
	if env.EventType == "" {
		// Producers that only set headers still get routed.
		if v, ok := headerValue(msg, "event_type"); ok {
			env.EventType = string(v)
		} else {
			return Message{}, errors.New("missing event_type")
		}
	}
	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Envelope:  env,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}

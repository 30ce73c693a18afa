package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQWriter persists failed outbox events for later replay.
type DLQWriter struct {
	pool *pgxpool.Pool
}

// NewDLQWriter initialises a writer backed by the provided connection pool.
func NewDLQWriter(pool *pgxpool.Pool) *DLQWriter {
	return &DLQWriter{pool: pool}
}

// Write records a failed outbox message in the DLQ alongside the
// supplied reason.
func (w *DLQWriter) Write(ctx context.Context, msg Message, reason string) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO outbox_dlq (event_id, event_type, user_id, topic, payload, emitted_at, reason, next_retry_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7, NOW())`,
		msg.EventID, msg.EventType, msg.UserID, msg.Topic, msg.Payload, msg.EmittedAt, reason,
	)
	return err
}

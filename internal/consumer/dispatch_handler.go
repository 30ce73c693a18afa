package consumer

import (
	"context"
	"errors"
	"log"

	"github.com/FitSync-G13/fitsync-progress-service/internal/dispatcher"
	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// DispatchHandler feeds decoded envelopes into the event dispatcher.
// Event types the dispatcher does not handle are skipped: the inbound
// topics carry events for every service.
type DispatchHandler struct {
	dispatcher *dispatcher.Dispatcher
	logger     *log.Logger
}

// NewDispatchHandler constructs a handler around the dispatcher.
func NewDispatchHandler(d *dispatcher.Dispatcher) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: d,
		logger:     log.New(log.Writer(), "[consumer] ", log.LstdFlags),
	}
}

// Handle dispatches one envelope.
func (h *DispatchHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.dispatcher.Dispatch(ctx, msg.Envelope)
	if errors.Is(err, domain.ErrUnsupportedEvent) {
		h.logger.Printf("ignoring event type %q (event_id=%s)", msg.Envelope.EventType, msg.Envelope.EventID)
		return nil
	}
	return err
}

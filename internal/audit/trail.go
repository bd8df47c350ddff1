// Package audit records significant actions on the append-only ledger.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"vaultid/internal/storage/ledger"
	"vaultid/pkg/requestcontext"
)

// Ledger is the storage the trail appends to.
type Ledger interface {
	Append(ctx context.Context, subject string, body []byte) (string, error)
	EventsFor(ctx context.Context, subject string) ([]ledger.Record, error)
}

// Sink receives a copy of every event after it reached the ledger. Sink failures are
// logged and never reach the caller of Log.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Trail is a thin domain wrapper over the ledger. It keeps no state of its own.
type Trail struct {
	ledger Ledger
	sinks  []Sink
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Trail)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trail) {
		t.logger = logger
	}
}

func WithSink(sink Sink) Option {
	return func(t *Trail) {
		if sink != nil {
			t.sinks = append(t.sinks, sink)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Trail) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTrail(l Ledger, opts ...Option) *Trail {
	t := &Trail{ledger: l, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Log timestamps data, appends it under the subject named by data["user_id"] and returns
// the ledger reference.
func (t *Trail) Log(ctx context.Context, eventType EventType, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	event := Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Data:      data,
		Timestamp: t.now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode audit event: %w", err)
	}
	ref, err := t.ledger.Append(ctx, event.Subject(), body)
	if err != nil {
		return "", fmt.Errorf("append audit event %s: %w", eventType, err)
	}
	event.LedgerReference = ref
	if t.logger != nil {
		args := []any{"event_id", event.ID, "ledger_reference", ref, "log_type", "audit"}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			args = append(args, "request_id", requestID)
		}
		t.logger.InfoContext(ctx, string(eventType), args...)
	}

	for _, sink := range t.sinks {
		if err := sink.Publish(ctx, event); err != nil && t.logger != nil {
			t.logger.WarnContext(ctx, "audit sink publish failed",
				"event_type", string(eventType),
				"event_id", event.ID,
				"error", err,
			)
		}
	}
	return ref, nil
}

// EventsFor returns the events recorded for identityID, oldest first. Bodies that no
// longer decode are skipped.
func (t *Trail) EventsFor(ctx context.Context, identityID string) ([]Event, error) {
	records, err := t.ledger.EventsFor(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("read audit events: %w", err)
	}
	events := make([]Event, 0, len(records))
	for _, r := range records {
		var e Event
		if err := json.Unmarshal(r.Body, &e); err != nil {
			if t.logger != nil {
				t.logger.WarnContext(ctx, "skipping unreadable audit event", "key", r.Key, "error", err)
			}
			continue
		}
		e.LedgerReference = r.Reference
		events = append(events, e)
	}
	return events, nil
}

// Package http provides an event handler that forwards observed entity
// events to a remote HTTP service.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/pkg/log"
)

const eventsEndpoint = "/v1/ingest/entity-events"

// EventForwarder implements ports.Handler by POSTing each event as JSON
// to {ServiceURL}/v1/ingest/entity-events. It can wrap another handler,
// which runs first; a forwarding failure never blocks the wrapped
// handler's bookkeeping.
type EventForwarder struct {
	client     ports.HTTPClient
	serviceURL string
	authKey    string
	next       ports.Handler
	logger     ports.Logger
}

// NewEventForwarder creates a forwarder. next may be nil for
// forward-only operation; a nil logger disables logging.
func NewEventForwarder(client ports.HTTPClient, serviceURL, authKey string, next ports.Handler, logger ports.Logger) *EventForwarder {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &EventForwarder{
		client:     client,
		serviceURL: serviceURL,
		authKey:    authKey,
		next:       next,
		logger:     logger,
	}
}

// eventPayload is the wire shape of one forwarded event.
type eventPayload struct {
	Addr       string             `json:"addr,omitempty"`
	ID         int32              `json:"id"`
	ParentID   int32              `json:"parent_id"`
	Name       string             `json:"name"`
	State      domain.StateVector `json:"state"`
	MsgType    int32              `json:"msg_type"`
	ReceivedAt time.Time          `json:"received_at"`
}

// Handle runs the wrapped handler, then forwards the event.
func (f *EventForwarder) Handle(ctx context.Context, ev domain.Event) error {
	if f.next != nil {
		if err := f.next.Handle(ctx, ev); err != nil {
			return err
		}
	}
	return f.forward(ctx, ev)
}

func (f *EventForwarder) forward(ctx context.Context, ev domain.Event) error {
	payload := eventPayload{
		ID:         ev.ID,
		ParentID:   ev.ParentID,
		Name:       ev.Name,
		State:      ev.State,
		MsgType:    ev.Header.MsgType,
		ReceivedAt: ev.ReceivedAt,
	}
	if ev.Addr != nil {
		payload.Addr = ev.Addr.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	url := f.serviceURL + eventsEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.authKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.authKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("forward event: server returned %d: %s", resp.StatusCode, respBody)
	}

	f.logger.Debug("event forwarded",
		ports.Int32("id", ev.ID),
		ports.String("url", url),
	)
	return nil
}

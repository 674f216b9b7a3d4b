// Package notify pings the n8n send workflow after distributions are
// written, so delivery starts without waiting for the workflow's poll.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventDistributionsCreated is the event name posted after a send.
const EventDistributionsCreated = "distributions.created"

// ErrDisabled is returned by Notify when no webhook URL is configured.
var ErrDisabled = errors.New("webhook disabled")

// DistributionsCreated is the webhook payload for a send.
type DistributionsCreated struct {
	Event           string     `json:"event"`
	ContentID       string     `json:"content_id"`
	Channel         string     `json:"channel"`
	DistributionIDs []string   `json:"distribution_ids"`
	GHLContactIDs   []string   `json:"ghl_contact_ids"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty"`
	RequestedBy     string     `json:"requested_by,omitempty"`
}

// Webhook posts JSON events to a single n8n webhook URL.
type Webhook struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewWebhook returns a notifier for url. An empty url yields a notifier
// whose Notify returns ErrDisabled.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "n8n-webhook",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool { return w != nil && w.url != "" }

// Notify posts payload and returns an error for transport failures and
// non-2xx responses. The response body is included in the error.
func (w *Webhook) Notify(ctx context.Context, payload DistributionsCreated) error {
	if !w.Enabled() {
		return ErrDisabled
	}
	if payload.Event == "" {
		payload.Event = EventDistributionsCreated
	}

	ctx, span := otel.Tracer("notify/webhook").Start(ctx, "Notify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("event", payload.Event),
			attribute.Int("distributions", len(payload.DistributionIDs)),
		))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = w.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("webhook status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

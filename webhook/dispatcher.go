package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/internal/metrics"
)

// delivery is the JSON body POSTed to registered endpoints.
type delivery struct {
	WebhookID int64         `json:"webhook_id"`
	Event     deliveryEvent `json:"event"`
}

type deliveryEvent struct {
	EventCode comms.Code     `json:"event_code"`
	Payload   map[string]any `json:"payload"`
}

// Dispatcher posts lifecycle events to matching webhook registrations.
type Dispatcher struct {
	store  *SQLiteStore
	client *http.Client
	log    *slog.Logger
}

// NewDispatcher returns a dispatcher with a per-delivery timeout.
func NewDispatcher(store *SQLiteStore, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		store:  store,
		client: &http.Client{Timeout: timeout},
		log:    log.With("component", "webhook"),
	}
}

// Attach subscribes the dispatcher to every event on the bus. Delivery
// failures are logged, not returned, so a dead endpoint cannot fail the
// mutation that published the event.
func (d *Dispatcher) Attach(bus comms.Bus) (unsubscribe func()) {
	return bus.Subscribe(comms.MatchAll, func(ctx context.Context, evt *comms.Event) error {
		if err := d.Deliver(ctx, evt); err != nil {
			d.log.Warn("webhook delivery failed", "event", evt.Code, "error", err)
		}
		return nil
	})
}

// Deliver posts the event to every active registration matching its code.
func (d *Dispatcher) Deliver(ctx context.Context, evt *comms.Event) error {
	hooks, err := d.store.Matching(evt.Code)
	if err != nil {
		return err
	}

	var failures []error
	for _, hook := range hooks {
		if err := d.post(ctx, hook, evt); err != nil {
			metrics.WebhookDeliveries.WithLabelValues("error").Inc()
			failures = append(failures, fmt.Errorf("webhook %d: %w", hook.ID, err))
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d deliveries failed: %v", len(failures), len(hooks), failures[0])
	}
	return nil
}

// DeliverTo posts one event to a single registration regardless of its
// event code or active flag. The test endpoint uses it to probe an
// endpoint before trusting it with real traffic.
func (d *Dispatcher) DeliverTo(ctx context.Context, hook *Webhook, evt *comms.Event) error {
	if err := d.post(ctx, hook, evt); err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return err
	}
	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	return nil
}

func (d *Dispatcher) post(ctx context.Context, hook *Webhook, evt *comms.Event) error {
	body, err := json.Marshal(delivery{
		WebhookID: hook.ID,
		Event: deliveryEvent{
			EventCode: evt.Code,
			Payload:   evt.Payload,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}

	d.log.Debug("delivered event",
		"event", evt.Code, "url", hook.URL, "delivery_id", deliveryID)
	return nil
}

package firehose

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/skymarchbot/skymarch/internal/bus"
)

// Alerter raises an out-of-band developer alert. The pipeline's alert
// channel satisfies it.
type Alerter interface {
	Alert(ctx context.Context, message, kind string)
}

// Consumer owns the Jetstream connection. It reconnects forever on any
// failure; losing the firehose is never fatal to the process.
type Consumer struct {
	endpoint       string
	reconnectDelay time.Duration
	filter         Filter
	queue          *bus.Queue
	alerter        Alerter
}

// NewConsumer creates a consumer that feeds relevant events into queue.
func NewConsumer(endpoint string, reconnectDelay time.Duration, filter Filter, queue *bus.Queue, alerter Alerter) *Consumer {
	return &Consumer{
		endpoint:       endpoint,
		reconnectDelay: reconnectDelay,
		filter:         filter,
		queue:          queue,
		alerter:        alerter,
	}
}

// Run connects and consumes until ctx is cancelled. The sole retry policy
// at this layer is a fixed delay and reconnect; it never gives up.
func (c *Consumer) Run(ctx context.Context) error {
	u := c.subscribeURL()
	for {
		if err := c.consumeOnce(ctx, u); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("jetstream connection lost, reconnecting",
				"error", err, "delay", c.reconnectDelay)
			if looksLikeNetworkTrouble(err) && c.alerter != nil {
				c.alerter.Alert(ctx, "jetstream connection issues: "+err.Error(), "CONNECTION WARNING")
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Consumer) subscribeURL() string {
	params := url.Values{}
	params.Add("wantedCollections", postCollection)
	return c.endpoint + "?" + params.Encode()
}

// consumeOnce holds one connection until it fails.
func (c *Consumer) consumeOnce(ctx context.Context, u string) error {
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 20) // 1MB; jetstream post events are small

	slog.Info("connected to jetstream", "endpoint", c.endpoint)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var ev jetstreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Error("failed to parse jetstream message", "error", err)
			continue
		}
		if !c.filter.Relevant(&ev) {
			continue
		}
		event := c.filter.Normalize(&ev)
		if !c.queue.TryEnqueue(event) {
			slog.Warn("event queue full, dropped event", "uri", event.URI())
		}
	}
}

func looksLikeNetworkTrouble(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection") || strings.Contains(msg, "timeout")
}

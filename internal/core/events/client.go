package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectReindexed is published after every successful knowledge base rebuild.
	SubjectReindexed = "amitybot.kb.reindexed"
	// SubjectReindexRequested lets other services trigger a rebuild.
	SubjectReindexRequested = "amitybot.kb.reindex.requested"
)

// ReindexedEvent is the payload of SubjectReindexed.
type ReindexedEvent struct {
	DocumentsIndexed int       `json:"documents_indexed"`
	DocumentsSkipped int       `json:"documents_skipped"`
	Chunks           int       `json:"chunks"`
	DurationMs       int64     `json:"duration_ms"`
	CompletedAt      time.Time `json:"completed_at"`
}

const connectRetryWait = time.Second

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewClient dials url until the first connection succeeds or ctx is done.
// Once connected, dropped connections are retried in the background.
func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("amitybot"),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	for {
		nc, err := nats.Connect(url, opts...)
		if err == nil {
			return &Client{conn: nc, logger: logger}, nil
		}
		logger.Warn("nats connect failed, retrying", "url", url, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("nats connect: %w", errors.Join(ctx.Err(), err))
		case <-time.After(connectRetryWait):
		}
	}
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

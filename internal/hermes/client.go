package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectDatasetReady is published after a run has written a new dataset.
const SubjectDatasetReady = "chatlog.dataset.ready"

// DatasetReady tells analytics consumers that a fresh dataset is available.
type DatasetReady struct {
	RunID         string         `json:"run_id"`
	Output        string         `json:"output"`
	Owner         string         `json:"owner,omitempty"`
	Records       int            `json:"records"`
	Processed     int            `json:"archives_processed"`
	Skipped       int            `json:"archives_skipped"`
	Conversations map[string]int `json:"conversations"`
	FinishedAt    time.Time      `json:"finished_at"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("chatlog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
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

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// PublishDatasetReady publishes ev and flushes so the event is on the wire
// before a short-lived ingest process exits.
func (c *Client) PublishDatasetReady(ctx context.Context, ev DatasetReady) error {
	if err := c.Publish(SubjectDatasetReady, ev); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	c.logger.Info("published dataset ready", "subject", SubjectDatasetReady, "run_id", ev.RunID)
	return nil
}

func (c *Client) Close() {
	c.conn.Close()
}

// Package nats publishes and consumes document ingestion events. Each
// message body is the decimal document id; the worker pulls ids off the
// queue and runs the pipeline.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
)

const queueGroup = "workers"

type Config struct {
	URL     string
	Subject string

	ConnectTimeout time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

type Queue struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func Connect(cfg Config, logger *slog.Logger) (*Queue, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Queue{conn: conn, subject: cfg.Subject, logger: logger}, nil
}

func (q *Queue) PublishDocumentIngested(_ context.Context, documentID int64) error {
	if err := q.conn.Publish(q.subject, []byte(strconv.FormatInt(documentID, 10))); err != nil {
		return fmt.Errorf("publish document event: %w", err)
	}
	return nil
}

// SubscribeDocumentIngested consumes document ids in the shared worker
// queue group until the context ends. Handler errors are logged, not
// redelivered; a failed document stays in its current status and can be
// re-triggered through the API.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, int64) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		id, err := strconv.ParseInt(string(msg.Data), 10, 64)
		if err != nil {
			q.logger.Error("malformed document event", "data", string(msg.Data), "error", err)
			return
		}
		if err := handler(ctx, id); err != nil {
			q.logger.Error("document event handler failed", "doc_id", id, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", q.subject, err)
	}

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		q.logger.Warn("drain subscription", "error", err)
	}
	return ctx.Err()
}

func (q *Queue) Close() {
	if err := q.conn.Drain(); err != nil {
		q.logger.Warn("drain nats connection", "error", err)
	}
	q.conn.Close()
}

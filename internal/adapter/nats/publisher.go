// Package nats publishes normalized reports on NATS subjects of the form
// <prefix>.<station>.report.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/couchcryptid/ecowitt-ingest/internal/config"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher implements dispatch.Subscriber on a NATS connection.
type Publisher struct {
	conn   conn
	prefix string
	logger *slog.Logger
}

// Connect dials the server in cfg. The client keeps reconnecting in the
// background after the first connection succeeds.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("ecowitt-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	}

	type result struct {
		nc  *nats.Conn
		err error
	}
	done := make(chan result, 1)
	go func() {
		nc, err := nats.Connect(cfg.NATSURL, opts...)
		done <- result{nc, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("nats connect %s: %w", cfg.NATSURL, res.err)
		}
		logger.Info("nats connected", "url", res.nc.ConnectedUrl())
		return newPublisher(res.nc, cfg.NATSSubjectPrefix, logger), nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.nc != nil {
				res.nc.Close()
			}
		}()
		return nil, fmt.Errorf("nats connect %s: %w", cfg.NATSURL, ctx.Err())
	}
}

func newPublisher(c conn, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{conn: c, prefix: prefix, logger: logger}
}

func (p *Publisher) Name() string { return "nats" }

// Subject returns the subject a report from station is published on.
func (p *Publisher) Subject(station string) string {
	if station == "" {
		station = "unknown"
	}
	return p.prefix + "." + station + ".report"
}

// Deliver publishes r and flushes so the server has it before returning.
func (p *Publisher) Deliver(ctx context.Context, r domain.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	msg := nats.NewMsg(p.Subject(r.Station.ID()))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, r.ID)
	msg.Header.Set("Content-Type", "application/json")
	if r.Station.Model != "" {
		msg.Header.Set("Station-Model", r.Station.Model)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

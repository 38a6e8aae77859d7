// Package mqtt publishes normalized reports to an MQTT broker.
//
// Topics, under the configured prefix:
//
//	<prefix>/status                      "online" / "offline" (retained, last will)
//	<prefix>/<station>/report            full report JSON
//	<prefix>/<station>/sensors/<key>     latest value of one field (retained)
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/couchcryptid/ecowitt-ingest/internal/catalog"
	"github.com/couchcryptid/ecowitt-ingest/internal/config"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

const (
	qos            = 1
	unknownStation = "unknown"
)

var errNotConnected = errors.New("mqtt client not connected")

// Publisher implements dispatch.Subscriber on top of a paho client.
type Publisher struct {
	client    mqtt.Client
	prefix    string
	logger    *slog.Logger
	connected atomic.Bool
}

// NewPublisher configures a client for the broker in cfg. Call Connect
// before the first delivery.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{prefix: cfg.MQTTTopicPrefix, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(p.statusTopic(), "offline", qos, true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		p.connected.Store(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		c.Publish(p.statusTopic(), qos, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.connected.Store(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the initial broker connection or ctx cancellation.
func (p *Publisher) Connect(ctx context.Context) error {
	if p.connected.Load() {
		return nil
	}
	token := p.client.Connect()
	if err := waitToken(ctx, token); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (p *Publisher) Name() string { return "mqtt" }

// Deliver publishes the report and one retained message per cataloged
// field. Unrecognized keys travel only in the report, since a wire key may
// contain topic separators or wildcards. The station passkey is never
// published as a sensor topic.
func (p *Publisher) Deliver(ctx context.Context, r domain.Report) error {
	if !p.connected.Load() {
		return errNotConnected
	}

	station := r.Station.ID()
	if station == "" {
		station = unknownStation
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	reportTopic := fmt.Sprintf("%s/%s/report", p.prefix, station)
	if err := waitToken(ctx, p.client.Publish(reportTopic, qos, false, data)); err != nil {
		return fmt.Errorf("publish %s: %w", reportTopic, err)
	}

	var errs []error
	for _, key := range r.Fields.Keys() {
		if _, ok := catalog.Lookup(key); !ok || key == "PASSKEY" {
			continue
		}
		v, _ := r.Fields.Get(key)
		topic := fmt.Sprintf("%s/%s/sensors/%s", p.prefix, station, key)
		if err := waitToken(ctx, p.client.Publish(topic, qos, true, v.Text())); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", topic, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	p.logger.Debug("published report", "topic", reportTopic, "fields", r.Fields.Len())
	return errors.Join(errs...)
}

// Close marks the service offline and disconnects.
func (p *Publisher) Close() error {
	if p.connected.Load() {
		token := p.client.Publish(p.statusTopic(), qos, true, "offline")
		token.WaitTimeout(2 * time.Second)
	}
	p.client.Disconnect(250)
	p.connected.Store(false)
	return nil
}

func (p *Publisher) statusTopic() string {
	return p.prefix + "/status"
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

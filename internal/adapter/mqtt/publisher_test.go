package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ecowitt-ingest/internal/config"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient records publishes. Methods not overridden panic through the
// nil embedded interface.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	msgs         []published
	failTopic    string
	block        bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.block {
		return &fakeToken{done: make(chan struct{})}
	}
	if topic == c.failTopic {
		return newToken(errors.New("broker refused"))
	}
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	c.msgs = append(c.msgs, published{topic: topic, retained: retained, payload: body})
	return newToken(nil)
}

func (c *fakeClient) Connect() mqtt.Token { return newToken(nil) }

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func newTestPublisher(client *fakeClient) *Publisher {
	p := &Publisher{client: client, prefix: "ecowitt", logger: slog.Default()}
	p.connected.Store(true)
	return p
}

func testReport() domain.Report {
	rec := domain.NewRecord()
	rec.Set("PASSKEY", domain.TextValue("ABCDEF"))
	rec.Set("model", domain.TextValue("GW1000"))
	rec.Set("tempc", domain.FloatValue(20.5))
	rec.Set("humidity", domain.IntValue(50))
	return domain.Report{
		ID:         "report-1",
		ReceivedAt: time.Date(2024, 4, 26, 15, 10, 3, 0, time.UTC),
		Station:    domain.StationFromRecord(rec),
		Fields:     rec,
	}
}

func TestDeliver_PublishesReportAndSensors(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)

	require.NoError(t, p.Deliver(context.Background(), testReport()))

	require.Len(t, client.msgs, 4)
	assert.Equal(t, "ecowitt/abcdef/report", client.msgs[0].topic)
	assert.False(t, client.msgs[0].retained)
	assert.Contains(t, client.msgs[0].payload, `"id":"report-1"`)

	assert.Equal(t, published{"ecowitt/abcdef/sensors/model", true, "GW1000"}, client.msgs[1])
	assert.Equal(t, published{"ecowitt/abcdef/sensors/tempc", true, "20.5"}, client.msgs[2])
	assert.Equal(t, published{"ecowitt/abcdef/sensors/humidity", true, "50"}, client.msgs[3])
}

func TestDeliver_UnrecognizedKeysOnlyInReport(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)

	r := testReport()
	r.Fields.Set("a/b", domain.TextValue("1"))
	r.Fields.Set("x#", domain.TextValue("2"))
	r.Fields.Set("y+", domain.TextValue("3"))
	require.NoError(t, p.Deliver(context.Background(), r))

	require.Len(t, client.msgs, 4)
	assert.Contains(t, client.msgs[0].payload, `"a/b":"1"`)
	for _, m := range client.msgs[1:] {
		assert.NotContains(t, m.topic, "#")
		assert.NotContains(t, m.topic, "+")
		assert.NotEqual(t, "ecowitt/abcdef/sensors/a/b", m.topic)
	}
}

func TestDeliver_UnknownStation(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)

	rec := domain.NewRecord()
	rec.Set("tempc", domain.FloatValue(1))
	require.NoError(t, p.Deliver(context.Background(), domain.Report{ID: "r", Fields: rec}))

	assert.Equal(t, "ecowitt/unknown/report", client.msgs[0].topic)
}

func TestDeliver_NotConnected(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)
	p.connected.Store(false)

	err := p.Deliver(context.Background(), testReport())
	require.ErrorIs(t, err, errNotConnected)
	assert.Empty(t, client.msgs)
}

func TestDeliver_ReportPublishError(t *testing.T) {
	client := &fakeClient{failTopic: "ecowitt/abcdef/report"}
	p := newTestPublisher(client)

	err := p.Deliver(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker refused")
	assert.Empty(t, client.msgs, "sensor topics are skipped when the report fails")
}

func TestDeliver_SensorErrorsJoined(t *testing.T) {
	client := &fakeClient{failTopic: "ecowitt/abcdef/sensors/tempc"}
	p := newTestPublisher(client)

	err := p.Deliver(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ecowitt/abcdef/sensors/tempc")
	assert.Len(t, client.msgs, 3)
}

func TestDeliver_HonorsContext(t *testing.T) {
	client := &fakeClient{block: true}
	p := newTestPublisher(client)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Deliver(ctx, testReport())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)

	require.NoError(t, p.Close())

	assert.True(t, client.disconnected)
	require.Len(t, client.msgs, 1)
	assert.Equal(t, published{"ecowitt/status", true, "offline"}, client.msgs[0])
	assert.ErrorIs(t, p.Deliver(context.Background(), testReport()), errNotConnected)
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher(&config.Config{
		MQTTBroker:      "localhost",
		MQTTPort:        1883,
		MQTTClientID:    "test",
		MQTTTopicPrefix: "weather",
	}, slog.Default())

	assert.Equal(t, "mqtt", p.Name())
	assert.Equal(t, "weather/status", p.statusTopic())

	opts := p.client.OptionsReader()
	require.Len(t, opts.Servers(), 1)
	assert.Equal(t, "tcp://localhost:1883", opts.Servers()[0].String())
	assert.Equal(t, "test", opts.ClientID())
	assert.Equal(t, "weather/status", opts.WillTopic())
	assert.True(t, opts.AutoReconnect())
}

package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	connectTok *fakeToken
	publishTok *fakeToken
	messages   []published
}

func (c *fakeClient) Connect() paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectTok == nil {
		c.connected = true
		return completedToken(nil)
	}
	return c.connectTok
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload any) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	if c.publishTok != nil {
		return c.publishTok
	}
	return completedToken(nil)
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func testSummary() *Summary {
	return &Summary{
		DiagnosticID: "d-1",
		UserID:       "u-1",
		Type:         "engine_sound",
		Status:       "completed",
		Urgency:      "immediate",
		Confidence:   0.812,
		Issues:       []string{"Rod knock"},
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cardoc/diagnoses/engine_sound", newPublisher(&fakeClient{}, "cardoc/diagnoses/", 1).Topic("engine_sound"))
	assert.Equal(t, "dashboard_scan", newPublisher(&fakeClient{}, "", 0).Topic("dashboard_scan"))
}

func TestPublishCompactSummary(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	p := newPublisher(fc, "cardoc/diagnoses", 1)
	require.NoError(t, p.Connect(t.Context()))
	assert.True(t, p.IsConnected())

	require.NoError(t, p.Publish(t.Context(), testSummary()))
	require.Len(t, fc.messages, 1)

	msg := fc.messages[0]
	assert.Equal(t, "cardoc/diagnoses/engine_sound", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.NotContains(t, string(msg.payload), "\n")

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "d-1", got["diagnostic_id"])
	assert.Equal(t, "immediate", got["urgency_level"])
	assert.InDelta(t, 0.812, got["confidence_score"], 1e-9)
	assert.Equal(t, "2026-03-01T12:00:00Z", got["created_at"])

	p.Disconnect()
	assert.False(t, p.IsConnected())
}

func TestPublishRequiresConnection(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	p := newPublisher(fc, "cardoc", 0)

	err := p.Publish(t.Context(), testSummary())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.Empty(t, fc.messages)
}

func TestPublishBrokerError(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{connected: true, publishTok: completedToken(errors.NewStd("not authorized"))}
	p := newPublisher(fc, "cardoc", 0)

	err := p.Publish(t.Context(), testSummary())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.Contains(t, err.Error(), "not authorized")
}

func TestConnectHonorsContext(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{connectTok: pendingToken()}
	p := newPublisher(fc, "cardoc", 0)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err := p.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew(t *testing.T) {
	t.Parallel()

	p, err := New(&conf.MQTTSettings{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = New(&conf.MQTTSettings{Enabled: true, Broker: "localhost"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(&conf.MQTTSettings{Enabled: true, Broker: "tcp://localhost:1883", QoS: 3})
	require.Error(t, err)

	p, err = New(&conf.MQTTSettings{Enabled: true, Broker: "tcp://localhost:1883", ClientID: "cardoc", Topic: "cardoc/diagnoses"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.IsConnected())
	assert.Equal(t, "cardoc/diagnoses/dashboard_scan", p.Topic("dashboard_scan"))
}

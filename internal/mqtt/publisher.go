// Package mqtt publishes compact diagnosis summaries to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// Timeouts applied to broker operations
const (
	ConnectTimeout       = 30 * time.Second
	ConnectRetryInterval = 10 * time.Second
	PublishTimeout       = 10 * time.Second
	DisconnectQuiesce    = 250 // milliseconds
)

// Summary is the payload published for every diagnosis.
type Summary struct {
	DiagnosticID string    `json:"diagnostic_id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"diagnosis_type"`
	Status       string    `json:"status"`
	Urgency      string    `json:"urgency_level"`
	Confidence   float64   `json:"confidence_score"`
	Issues       []string  `json:"detected_issues"`
	CreatedAt    time.Time `json:"created_at"`
}

// client is the part of paho.Client the publisher uses.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher sends summaries to <topic>/<diagnosis type>.
type Publisher struct {
	mu     sync.Mutex
	client client
	broker string
	topic  string
	qos    byte
	retain bool
	log    logger.Logger
}

// GetLogger returns the mqtt logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}

// New builds a Publisher from settings. It returns nil, nil when publishing
// is disabled. The connection is opened by Connect.
func New(settings *conf.MQTTSettings) (*Publisher, error) {
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	u, err := url.Parse(settings.Broker)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid broker URL %q", settings.Broker).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Context("field", "broker").
			Build()
	}
	if settings.QoS > 2 {
		return nil, errors.Newf("invalid QoS %d", settings.QoS).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Context("field", "qos").
			Build()
	}

	p := &Publisher{
		broker: settings.Broker,
		topic:  strings.TrimRight(settings.Topic, "/"),
		qos:    settings.QoS,
		retain: settings.Retain,
		log:    GetLogger(),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(settings.ClientID)
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(ConnectRetryInterval)
	opts.SetConnectTimeout(ConnectTimeout)
	opts.SetOnConnectHandler(p.onConnect)
	opts.SetConnectionLostHandler(p.onConnectionLost)
	p.client = paho.NewClient(opts)

	return p, nil
}

func newPublisher(c client, topic string, qos byte) *Publisher {
	return &Publisher{client: c, broker: "test", topic: strings.TrimRight(topic, "/"), qos: qos, log: GetLogger()}
}

// Topic returns the topic a summary of diagnosisType is published to.
func (p *Publisher) Topic(diagnosisType string) string {
	if p.topic == "" {
		return diagnosisType
	}
	return p.topic + "/" + diagnosisType
}

// Connect opens the broker connection.
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client.IsConnected() {
		return nil
	}
	if err := wait(ctx, p.client.Connect(), ConnectTimeout); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("operation", "connect").
			Context("broker", p.broker).
			Build()
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// Publish sends s as compact JSON.
func (p *Publisher) Publish(ctx context.Context, s *Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_summary").
			Build()
	}
	topic := p.Topic(s.Type)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := wait(ctx, p.client.Publish(topic, p.qos, p.retain, payload), PublishTimeout); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("operation", "publish").
			Context("topic", topic).
			Build()
	}

	p.log.Debug("summary published",
		logger.String("topic", topic),
		logger.Int("bytes", len(payload)))
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client.IsConnected() {
		p.client.Disconnect(DisconnectQuiesce)
	}
}

func (p *Publisher) onConnect(paho.Client) {
	p.log.Info("connected to MQTT broker", logger.String("broker", p.broker))
}

func (p *Publisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn("connection to MQTT broker lost",
		logger.String("broker", p.broker),
		logger.Error(err))
}

// wait blocks until tok completes, ctx ends or timeout passes.
func wait(ctx context.Context, tok paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.NewStd("operation timed out")
	}
}

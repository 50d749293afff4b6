// Package mqtt publishes insight events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// client is the part of pahomqtt.Client the module uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Module forwards persistent deviations, and optionally every analysis, to
// <prefix>/users/<user_id>/deviation and <prefix>/users/<user_id>/analysis.
type Module struct {
	logger *zap.Logger
	cfg    Config
	bus    plugin.EventBus
	unsubs []func()

	mu      sync.RWMutex
	client  client
	connect func(*pahomqtt.ClientOptions) client
}

// New creates an MQTT publisher module.
func New() *Module {
	return &Module{
		connect: func(o *pahomqtt.ClientOptions) client { return pahomqtt.NewClient(o) },
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "mqtt",
		Version:     "0.1.0",
		Description: "Publishes insight events to an MQTT broker",
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal mqtt config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("mqtt config: %w", err)
	}
	m.bus = deps.Bus

	m.logger.Info("mqtt module initialized",
		zap.Bool("enabled", m.cfg.BrokerURL != ""),
		zap.String("client_id", m.cfg.ClientID),
		zap.String("topic_prefix", m.cfg.TopicPrefix),
		zap.Uint8("qos", m.cfg.QoS),
		zap.Bool("publish_analyses", m.cfg.PublishAnalyses),
	)
	return nil
}

// Start connects to the broker and subscribes to insight events. A broker
// that is down at startup is retried in the background by the client.
func (m *Module) Start(_ context.Context) error {
	if m.cfg.BrokerURL == "" {
		m.logger.Info("mqtt module started (no-op: no broker configured)")
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(m.cfg.Timeout)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}

	c := m.connect(opts)
	if pc, ok := c.(pahomqtt.Client); ok {
		token := pc.Connect()
		switch {
		case !token.WaitTimeout(m.cfg.Timeout):
			m.logger.Warn("mqtt connection timed out; will reconnect in background")
		case token.Error() != nil:
			m.logger.Warn("mqtt connection failed; will reconnect in background", zap.Error(token.Error()))
		default:
			m.logger.Info("mqtt connected to broker", zap.String("broker_url", m.cfg.BrokerURL))
		}
	}
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()

	if m.bus != nil {
		m.unsubs = append(m.unsubs, m.bus.Subscribe(insight.TopicDeviationPersistent, m.publishEvent))
		if m.cfg.PublishAnalyses {
			m.unsubs = append(m.unsubs, m.bus.Subscribe(insight.TopicAnalysisCompleted, m.publishEvent))
		}
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Disconnect(250)
		m.client = nil
		m.logger.Info("mqtt disconnected")
	}
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.cfg.BrokerURL == "" {
		return plugin.HealthStatus{Status: "healthy", Message: "no broker configured (no-op mode)"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil || !m.client.IsConnected() {
		return plugin.HealthStatus{Status: "degraded", Message: "not connected to MQTT broker"}
	}
	return plugin.HealthStatus{Status: "healthy", Message: "connected to " + m.cfg.BrokerURL}
}

// topicFor maps an insight event to its MQTT topic. ok is false for events
// the module does not forward.
func (m *Module) topicFor(event plugin.Event) (topic string, ok bool) {
	switch p := event.Payload.(type) {
	case *analytics.PersistentDeviationEvent:
		return m.cfg.TopicPrefix + "/users/" + p.UserID + "/deviation", p.UserID != ""
	case *analytics.AnalysisEvent:
		return m.cfg.TopicPrefix + "/users/" + p.UserID + "/analysis", p.UserID != ""
	default:
		return "", false
	}
}

func (m *Module) publishEvent(_ context.Context, event plugin.Event) {
	topic, ok := m.topicFor(event)
	if !ok {
		m.logger.Debug("mqtt skipping event", zap.String("event_topic", event.Topic))
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil || !m.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		m.logger.Warn("failed to marshal MQTT payload", zap.String("topic", event.Topic), zap.Error(err))
		return
	}

	token := m.client.Publish(topic, m.cfg.QoS, m.cfg.Retain, payload)
	if !token.WaitTimeout(m.cfg.Timeout) {
		m.logger.Warn("mqtt publish timed out", zap.String("event_topic", event.Topic))
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Warn("mqtt publish failed", zap.String("event_topic", event.Topic), zap.Error(err))
		return
	}
	m.logger.Debug("mqtt event published", zap.String("event_topic", event.Topic))
}

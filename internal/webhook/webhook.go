// Package webhook delivers insight events to an external HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/internal/version"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Cycleinsight-Signature"

var deliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cycleinsight",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook deliveries by topic and result.",
	},
	[]string{"topic", "result"},
)

func init() {
	prometheus.MustRegister(deliveriesTotal)
}

var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Config holds the plugins.webhook section.
type Config struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
	Topics  []string      `mapstructure:"topics"`
}

// DefaultConfig notifies on persistent deviations only. Delivery is off
// until a URL is configured and enabled is set.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Topics:  []string{insight.TopicDeviationPersistent},
	}
}

// Validate checks the URL and topics when delivery is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) URL", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	for _, t := range c.Topics {
		if t != insight.TopicDeviationPersistent && t != insight.TopicAnalysisCompleted {
			return fmt.Errorf("unknown topic %q", t)
		}
	}
	return nil
}

// Module posts subscribed insight events to the configured URL.
type Module struct {
	logger *zap.Logger
	cfg    Config
	client *http.Client
	bus    plugin.EventBus
	unsubs []func()

	delivered atomic.Int64
	failed    atomic.Int64
	lastError atomic.Value // string
}

// New creates a webhook module.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "webhook",
		Version:     "0.1.0",
		Description: "Posts persistent deviation notifications to a configured URL",
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
			return fmt.Errorf("unmarshal webhook config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	m.client = &http.Client{Timeout: m.cfg.Timeout}
	m.bus = deps.Bus

	m.logger.Info("webhook module initialized",
		zap.Bool("enabled", m.cfg.Enabled),
		zap.Strings("topics", m.cfg.Topics),
		zap.Bool("signed", m.cfg.Secret != ""),
	)
	return nil
}

// Start subscribes to the configured topics.
func (m *Module) Start(_ context.Context) error {
	if !m.cfg.Enabled || m.bus == nil {
		return nil
	}
	for _, topic := range m.cfg.Topics {
		m.unsubs = append(m.unsubs, m.bus.Subscribe(topic, m.handleEvent))
	}
	m.logger.Info("webhook module started", zap.String("host", hostOf(m.cfg.URL)))
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	return nil
}

// Health reports delivery counts. Failed deliveries degrade the module
// until the next success.
func (m *Module) Health(context.Context) plugin.HealthStatus {
	if !m.cfg.Enabled {
		return plugin.HealthStatus{Status: "healthy", Message: "delivery disabled"}
	}
	st := plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"delivered": fmt.Sprint(m.delivered.Load()),
			"failed":    fmt.Sprint(m.failed.Load()),
		},
	}
	if msg, _ := m.lastError.Load().(string); msg != "" {
		st.Status = "degraded"
		st.Message = msg
	}
	return st
}

// Payload is the JSON body posted for each event.
type Payload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func (m *Module) handleEvent(ctx context.Context, event plugin.Event) {
	if !m.cfg.Enabled || !slices.Contains(m.cfg.Topics, event.Topic) {
		return
	}
	body, err := json.Marshal(Payload{
		Event:     event.Topic,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Data:      event.Payload,
	})
	if err != nil {
		m.logger.Error("failed to marshal webhook payload", zap.String("topic", event.Topic), zap.Error(err))
		return
	}
	m.record(event.Topic, m.send(ctx, body))
}

func (m *Module) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cycleinsight-webhook/"+version.Short())
	if m.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign([]byte(m.cfg.Secret), body))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			return fmt.Errorf("%s %s: %w", ue.Op, hostOf(ue.URL), ue.Err)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (m *Module) record(topic string, err error) {
	if err != nil {
		m.failed.Add(1)
		m.lastError.Store(err.Error())
		deliveriesTotal.WithLabelValues(topic, "failure").Inc()
		m.logger.Warn("webhook delivery failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	m.delivered.Add(1)
	m.lastError.Store("")
	deliveriesTotal.WithLabelValues(topic, "success").Inc()
	m.logger.Debug("webhook delivered", zap.String("topic", topic))
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// hostOf keeps URL paths and query strings, which may carry tokens, out of logs.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

package mqtt

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the plugins.mqtt section.
type Config struct {
	BrokerURL       string        `mapstructure:"broker_url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	ClientID        string        `mapstructure:"client_id"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	QoS             byte          `mapstructure:"qos"`
	Retain          bool          `mapstructure:"retain"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PublishAnalyses bool          `mapstructure:"publish_analyses"` // every completed analysis, not just persistent deviations
}

// DefaultConfig leaves the publisher disabled until broker_url is set.
func DefaultConfig() Config {
	return Config{
		ClientID:    "cycleinsight",
		TopicPrefix: "cycleinsight",
		QoS:         1,
		Timeout:     10 * time.Second,
	}
}

// Validate checks QoS, timeout and the topic prefix.
func (c Config) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.TopicPrefix == "" || strings.ContainsAny(c.TopicPrefix, "+#") {
		return fmt.Errorf("topic_prefix %q must be non-empty and free of wildcards", c.TopicPrefix)
	}
	return nil
}

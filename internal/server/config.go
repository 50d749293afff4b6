package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the HTTP listener settings.
type Config struct {
	Host           string  `mapstructure:"host"`
	Port           int     `mapstructure:"port"`
	DevMode        bool    `mapstructure:"dev_mode"`
	ReadOnly       bool    `mapstructure:"read_only"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Options converts the listener settings into server options.
func (c *Config) Options() Options {
	return Options{
		DevMode:        c.DevMode,
		ReadOnly:       c.ReadOnly,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
	}
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadConfig reads configuration from configPath (or the standard search
// path when empty) and CI_-prefixed environment variables on top of the
// built-in defaults.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cycleinsight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cycleinsight")
	}

	// CI_SERVER_PORT=9090, CI_PLUGINS_INSIGHT_PERSISTENCE_THRESHOLD=3
	v.SetEnvPrefix("CI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers every known key with its default, which also makes
// the keys visible to AutomaticEnv and Sub.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.read_only", false)
	v.SetDefault("server.rate_limit_rps", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("database.path", "./data/cycleinsight.db")
	v.SetDefault("database.busy_timeout", "5s")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("plugins.insight.confidence_developing", 3)
	v.SetDefault("plugins.insight.confidence_personalized", 6)
	v.SetDefault("plugins.insight.anomaly_threshold", 0.05)
	v.SetDefault("plugins.insight.anomaly_trees", 100)
	v.SetDefault("plugins.insight.anomaly_sample_size", 256)
	v.SetDefault("plugins.insight.anomaly_seed", 0)
	v.SetDefault("plugins.insight.zband_mild", 1.0)
	v.SetDefault("plugins.insight.zband_moderate", 2.0)
	v.SetDefault("plugins.insight.zband_severe", 3.0)
	v.SetDefault("plugins.insight.persistence_threshold", 2)
	v.SetDefault("plugins.insight.persistence_require_same_signal", true)
	v.SetDefault("plugins.insight.unconfirmed_policy", "report")
	v.SetDefault("plugins.insight.window_k_cold_start", 1.5)
	v.SetDefault("plugins.insight.window_k_developing", 1.5)
	v.SetDefault("plugins.insight.window_k_personalized", 1.0)
	v.SetDefault("plugins.insight.window_step_widening", 0.5)
	v.SetDefault("plugins.insight.min_cycle_days", 21)
	v.SetDefault("plugins.insight.heavy_flow_high", 0.5)
	v.SetDefault("plugins.insight.heavy_flow_moderate", 0.25)
	v.SetDefault("plugins.insight.state_backend", "memory")
	v.SetDefault("plugins.insight.redis_addr", "")
	v.SetDefault("plugins.insight.redis_key_prefix", "cycleinsight:persistence:")
	v.SetDefault("plugins.insight.analysis_retention", "2160h")
	v.SetDefault("plugins.insight.maintenance_interval", "1h")

	v.SetDefault("plugins.webhook.enabled", false)
	v.SetDefault("plugins.webhook.url", "")
	v.SetDefault("plugins.webhook.secret", "")
	v.SetDefault("plugins.webhook.timeout", "10s")
	v.SetDefault("plugins.webhook.topics", []string{"insight.deviation.persistent"})

	v.SetDefault("plugins.mqtt.broker_url", "")
	v.SetDefault("plugins.mqtt.username", "")
	v.SetDefault("plugins.mqtt.password", "")
	v.SetDefault("plugins.mqtt.client_id", "cycleinsight")
	v.SetDefault("plugins.mqtt.topic_prefix", "cycleinsight")
	v.SetDefault("plugins.mqtt.qos", 1)
	v.SetDefault("plugins.mqtt.retain", false)
	v.SetDefault("plugins.mqtt.timeout", "10s")
	v.SetDefault("plugins.mqtt.publish_analyses", false)
}

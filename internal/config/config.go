// Package config adapts Viper to the plugin.Config interface that modules
// read their settings through.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig is a plugin.Config backed by a Viper instance.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty configuration, so modules fall back
// to their defaults.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Unmarshal decodes the section into target. Fields absent from the
// section keep the values target already holds, which lets modules
// unmarshal over their DefaultConfig.
func (c *ViperConfig) Unmarshal(target any) error { return c.v.Unmarshal(target) }

func (c *ViperConfig) Get(key string) any                   { return c.v.Get(key) }
func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }
func (c *ViperConfig) AllSettings() map[string]any          { return c.v.AllSettings() }

// Sub scopes the configuration to key, typically "plugins.<name>". A
// missing section yields an empty configuration rather than nil.
func (c *ViperConfig) Sub(key string) plugin.Config {
	return New(c.v.Sub(key))
}

// Viper exposes the underlying instance for top-level settings such as
// server.port.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}

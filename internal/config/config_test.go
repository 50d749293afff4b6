package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestViperConfig_SubUnmarshalsOverDefaults(t *testing.T) {
	v := viper.New()
	v.Set("plugins.insight.persistence_threshold", 3)
	v.Set("plugins.insight.maintenance_interval", "15m")

	type section struct {
		PersistenceThreshold int           `mapstructure:"persistence_threshold"`
		UnconfirmedPolicy    string        `mapstructure:"unconfirmed_policy"`
		MaintenanceInterval  time.Duration `mapstructure:"maintenance_interval"`
	}
	got := section{PersistenceThreshold: 2, UnconfirmedPolicy: "report"}
	if err := New(v).Sub("plugins.insight").Unmarshal(&got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := section{PersistenceThreshold: 3, UnconfirmedPolicy: "report", MaintenanceInterval: 15 * time.Minute}
	if got != want {
		t.Errorf("Unmarshal() = %+v, want %+v", got, want)
	}
}

func TestViperConfig_MissingSub(t *testing.T) {
	sub := New(viper.New()).Sub("plugins.absent")
	if sub == nil {
		t.Fatal("Sub() = nil, want empty config")
	}
	if sub.IsSet("anything") {
		t.Error("IsSet() = true on empty config")
	}
}

func TestViperConfig_Getters(t *testing.T) {
	v := viper.New()
	v.Set("database.path", "/var/lib/cycleinsight.db")
	v.Set("server.port", 8080)
	v.Set("server.dev_mode", true)
	v.Set("auth.access_token_ttl", "15m")
	c := New(v)

	if got := c.GetString("database.path"); got != "/var/lib/cycleinsight.db" {
		t.Errorf("GetString() = %q", got)
	}
	if got := c.GetInt("server.port"); got != 8080 {
		t.Errorf("GetInt() = %d, want 8080", got)
	}
	if !c.GetBool("server.dev_mode") {
		t.Error("GetBool() = false, want true")
	}
	if got := c.GetDuration("auth.access_token_ttl"); got != 15*time.Minute {
		t.Errorf("GetDuration() = %v, want 15m", got)
	}
	if c.Viper() != v {
		t.Error("Viper() returned a different instance")
	}
	if _, ok := c.AllSettings()["server"]; !ok {
		t.Error("AllSettings() missing server section")
	}
}

// Package config implements the layered configuration loader (C12):
// built-in defaults → config.yaml in APP_DATA_DIR → AMOPS_* environment
// variables, in increasing priority. Grounded on the teacher's config
// loader (internal/config, gopkg.in/yaml.v3 + an env overlay), adapted here
// to use spf13/viper directly for the layering instead of a hand-rolled
// merge, since viper is already a direct dependency of the teacher's go.mod.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SidecarBinary names one (os, arch, sys_type) table entry (spec §6).
type SidecarBinary struct {
	OS      string `mapstructure:"os"`
	Arch    string `mapstructure:"arch"`
	SysType string `mapstructure:"sys_type"`
	Binary  string `mapstructure:"binary"`
}

// Config is the fully-resolved runtime configuration for
// cmd/orchestrator-server.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	HTTP struct {
		ListenAddr  string   `mapstructure:"listen_addr"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Sidecar struct {
		Host           string          `mapstructure:"host"`
		Port           int             `mapstructure:"port"`
		BinaryTable    []SidecarBinary `mapstructure:"binary_table"`
		ReadinessWait  time.Duration   `mapstructure:"readiness_wait"`
	} `mapstructure:"sidecar"`

	License struct {
		ServiceURL string `mapstructure:"service_url"`
		KeyEnvVar  string `mapstructure:"key_env_var"`
	} `mapstructure:"license"`

	Logs struct {
		MaxEntries int    `mapstructure:"max_entries"`
		Level      string `mapstructure:"level"`
	} `mapstructure:"logs"`

	Telemetry struct {
		Exporter    string `mapstructure:"exporter"` // otlp|jaeger|zipkin|none
		Endpoint    string `mapstructure:"endpoint"`
		ServiceName string `mapstructure:"service_name"`
	} `mapstructure:"telemetry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("http.listen_addr", ":8787")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("sidecar.host", "127.0.0.1")
	v.SetDefault("sidecar.port", 9234)
	v.SetDefault("sidecar.readiness_wait", "15s")
	v.SetDefault("license.service_url", "https://license.amediaops.example/api/v1/activate")
	v.SetDefault("license.key_env_var", "AMOPS_LICENSE_KEY")
	v.SetDefault("logs.max_entries", 1000)
	v.SetDefault("logs.level", "info")
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.service_name", "amediaops-orchestrator")
}

// Load resolves configuration from defaults, config.yaml under dataDirHint
// (if present), and AMOPS_*-prefixed environment variables, in that
// increasing priority order (spec §4.12).
func Load(dataDirHint string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dataDirHint != "" {
		v.AddConfigPath(dataDirHint)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read config.yaml: %w", err)
		}
	}

	v.SetEnvPrefix("AMOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if dataDirHint != "" {
		cfg.DataDir = dataDirHint
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "DSPACTL",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "DSPACTL",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (DSPACTL_*)
// 3. Project config (.dspactl.yaml in current directory)
// 4. User config (~/.config/dspactl/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".dspactl")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "dspactl"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values. Namespace, route name and URLs
// default to the deployment these scripts were written for.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("namespace", "petloan-instructlab")

	l.v.SetDefault("kube.binary", "")
	l.v.SetDefault("kube.kubeconfig", "")
	l.v.SetDefault("kube.token", "")
	l.v.SetDefault("kube.command_timeout", "30s")

	l.v.SetDefault("dspa.route_name", "ds-pipeline-dspa")
	l.v.SetDefault("dspa.port_forward_url", "https://localhost:8888")
	l.v.SetDefault("dspa.use_route", false)
	l.v.SetDefault("dspa.base_url", "")
	l.v.SetDefault("dspa.insecure_skip_verify", true)
	l.v.SetDefault("dspa.pipeline_name", "InstructLab")

	// Standalone monitoring checks every 10 minutes for up to 24 hours;
	// post-submit monitoring every 30 seconds for up to 4 hours.
	l.v.SetDefault("monitor.interval", "10m")
	l.v.SetDefault("monitor.max_duration", "24h")
	l.v.SetDefault("monitor.submit_interval", "30s")
	l.v.SetDefault("monitor.submit_max_duration", "4h")
	l.v.SetDefault("monitor.heartbeat_every", 6)

	l.v.SetDefault("storage.endpoint", "")
	l.v.SetDefault("storage.access_key", "")
	l.v.SetDefault("storage.secret_key", "")
	l.v.SetDefault("storage.bucket", "mlpipeline")
	l.v.SetDefault("storage.prefix", "artifacts")
	l.v.SetDefault("storage.use_ssl", true)

	l.v.SetDefault("history.path", "")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

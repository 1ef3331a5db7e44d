package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log       LogConfig     `mapstructure:"log"`
	Namespace string        `mapstructure:"namespace"`
	Kube      KubeConfig    `mapstructure:"kube"`
	DSPA      DSPAConfig    `mapstructure:"dspa"`
	Monitor   MonitorConfig `mapstructure:"monitor"`
	Storage   StorageConfig `mapstructure:"storage"`
	History   HistoryConfig `mapstructure:"history"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// KubeConfig configures how cluster commands and credentials are resolved.
type KubeConfig struct {
	// Binary forces a specific CLI (oc or kubectl). Empty means prefer oc,
	// fall back to kubectl.
	Binary string `mapstructure:"binary"`
	// Kubeconfig overrides the kubeconfig path used for token extraction.
	Kubeconfig string `mapstructure:"kubeconfig"`
	// Token bypasses kubeconfig and `oc whoami` entirely.
	Token string `mapstructure:"token"`
	// CommandTimeout bounds each oc/kubectl invocation.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// DSPAConfig locates the Data Science Pipelines Application API.
type DSPAConfig struct {
	// RouteName is the OpenShift route exposing the DSPA API server.
	RouteName string `mapstructure:"route_name"`
	// PortForwardURL is used when UseRoute is false. Matches
	// `oc port-forward svc/ds-pipeline-dspa 8888:8888`.
	PortForwardURL string `mapstructure:"port_forward_url"`
	// UseRoute switches from port-forward to route discovery.
	UseRoute bool `mapstructure:"use_route"`
	// BaseURL overrides both discovery modes when set.
	BaseURL string `mapstructure:"base_url"`
	// InsecureSkipVerify accepts the self-signed certs DSPA routes
	// typically serve.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	// PipelineName is the display name to look for when submitting.
	PipelineName string `mapstructure:"pipeline_name"`
}

// MonitorConfig configures the polling loops.
type MonitorConfig struct {
	// Interval/MaxDuration drive the standalone `monitor` command.
	Interval    time.Duration `mapstructure:"interval"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
	// SubmitInterval/SubmitMaxDuration drive `submit --monitor`, which
	// polls tighter and gives up sooner.
	SubmitInterval    time.Duration `mapstructure:"submit_interval"`
	SubmitMaxDuration time.Duration `mapstructure:"submit_max_duration"`
	// HeartbeatEvery prints an update every N ticks even without changes.
	HeartbeatEvery int `mapstructure:"heartbeat_every"`
}

// StorageConfig locates the DSPA artifact object store.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// HistoryConfig configures the local submission history file.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

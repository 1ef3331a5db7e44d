package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateNamespace(cfg.Namespace)
	v.validateKube(&cfg.Kube)
	v.validateDSPA(&cfg.DSPA)
	v.validateMonitor(&cfg.Monitor)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateNamespace(namespace string) {
	if strings.TrimSpace(namespace) == "" {
		v.addError("namespace", namespace, "must not be empty")
	}
}

func (v *Validator) validateKube(cfg *KubeConfig) {
	switch cfg.Binary {
	case "", "oc", "kubectl":
	default:
		// Allow absolute paths for unusual installs; reject other bare names.
		if !strings.Contains(cfg.Binary, "/") {
			v.addError("kube.binary", cfg.Binary, "must be oc, kubectl, or an absolute path")
		}
	}
	if cfg.CommandTimeout <= 0 {
		v.addError("kube.command_timeout", cfg.CommandTimeout, "must be positive")
	}
}

func (v *Validator) validateDSPA(cfg *DSPAConfig) {
	if cfg.RouteName == "" {
		v.addError("dspa.route_name", cfg.RouteName, "must not be empty")
	}
	if !cfg.UseRoute && cfg.BaseURL == "" && cfg.PortForwardURL == "" {
		v.addError("dspa.port_forward_url", cfg.PortForwardURL,
			"must be set when route discovery is disabled")
	}
	if cfg.PipelineName == "" {
		v.addError("dspa.pipeline_name", cfg.PipelineName, "must not be empty")
	}
}

func (v *Validator) validateMonitor(cfg *MonitorConfig) {
	if cfg.Interval <= 0 {
		v.addError("monitor.interval", cfg.Interval, "must be positive")
	}
	if cfg.MaxDuration <= 0 {
		v.addError("monitor.max_duration", cfg.MaxDuration, "must be positive")
	}
	if cfg.SubmitInterval <= 0 {
		v.addError("monitor.submit_interval", cfg.SubmitInterval, "must be positive")
	}
	if cfg.SubmitMaxDuration <= 0 {
		v.addError("monitor.submit_max_duration", cfg.SubmitMaxDuration, "must be positive")
	}
	if cfg.HeartbeatEvery < 1 {
		v.addError("monitor.heartbeat_every", cfg.HeartbeatEvery, "must be at least 1")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	// Run from an empty directory so no project config is picked up.
	chdirTemp(t)

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}
	if cfg.Namespace != "petloan-instructlab" {
		t.Errorf("Namespace = %q, want petloan-instructlab", cfg.Namespace)
	}
	if cfg.DSPA.RouteName != "ds-pipeline-dspa" {
		t.Errorf("DSPA.RouteName = %q", cfg.DSPA.RouteName)
	}
	if cfg.DSPA.PortForwardURL != "https://localhost:8888" {
		t.Errorf("DSPA.PortForwardURL = %q", cfg.DSPA.PortForwardURL)
	}
	if cfg.DSPA.UseRoute {
		t.Error("DSPA.UseRoute = true, want false (port-forward is the default)")
	}
	if !cfg.DSPA.InsecureSkipVerify {
		t.Error("DSPA.InsecureSkipVerify = false, want true (self-signed routes)")
	}
	if cfg.Monitor.Interval != 10*time.Minute {
		t.Errorf("Monitor.Interval = %v, want 10m", cfg.Monitor.Interval)
	}
	if cfg.Monitor.MaxDuration != 24*time.Hour {
		t.Errorf("Monitor.MaxDuration = %v, want 24h", cfg.Monitor.MaxDuration)
	}
	if cfg.Monitor.SubmitInterval != 30*time.Second {
		t.Errorf("Monitor.SubmitInterval = %v, want 30s", cfg.Monitor.SubmitInterval)
	}
	if cfg.Monitor.SubmitMaxDuration != 4*time.Hour {
		t.Errorf("Monitor.SubmitMaxDuration = %v, want 4h", cfg.Monitor.SubmitMaxDuration)
	}
	if cfg.Kube.CommandTimeout != 30*time.Second {
		t.Errorf("Kube.CommandTimeout = %v, want 30s", cfg.Kube.CommandTimeout)
	}
	if cfg.DSPA.PipelineName != "InstructLab" {
		t.Errorf("DSPA.PipelineName = %q", cfg.DSPA.PipelineName)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DSPACTL_NAMESPACE", "other-namespace")
	t.Setenv("DSPACTL_LOG_LEVEL", "debug")
	t.Setenv("DSPACTL_MONITOR_INTERVAL", "1m")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Namespace != "other-namespace" {
		t.Errorf("Namespace = %q, want other-namespace", cfg.Namespace)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Monitor.Interval != time.Minute {
		t.Errorf("Monitor.Interval = %v, want 1m", cfg.Monitor.Interval)
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	content := `
namespace: lab-two
dspa:
  use_route: true
  insecure_skip_verify: false
monitor:
  interval: 5m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Namespace != "lab-two" {
		t.Errorf("Namespace = %q, want lab-two", cfg.Namespace)
	}
	if !cfg.DSPA.UseRoute {
		t.Error("DSPA.UseRoute = false, want true")
	}
	if cfg.DSPA.InsecureSkipVerify {
		t.Error("DSPA.InsecureSkipVerify = true, want false")
	}
	if cfg.Monitor.Interval != 5*time.Minute {
		t.Errorf("Monitor.Interval = %v, want 5m", cfg.Monitor.Interval)
	}
	// Untouched keys keep defaults.
	if cfg.DSPA.RouteName != "ds-pipeline-dspa" {
		t.Errorf("DSPA.RouteName = %q, want default", cfg.DSPA.RouteName)
	}
}

func TestValidator(t *testing.T) {
	chdirTemp(t)
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := NewValidator().Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.Namespace = "  "
	cfg.Log.Level = "verbose"
	cfg.Monitor.Interval = 0
	cfg.Kube.Binary = "helm"

	err = NewValidator().Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 4 {
		t.Errorf("got %d errors, want 4: %v", len(verrs), verrs)
	}
}

func TestValidator_AbsoluteBinaryPath(t *testing.T) {
	chdirTemp(t)
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Kube.Binary = "/usr/local/bin/oc"

	if err := NewValidator().Validate(cfg); err != nil {
		t.Errorf("absolute binary path should validate: %v", err)
	}
}

// chdirTemp switches the working directory to a fresh temp dir so that a
// developer's own .dspactl.yaml cannot leak into test results.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

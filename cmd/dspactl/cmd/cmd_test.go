package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/petloan/dspactl/internal/adapters/state"
	"github.com/petloan/dspactl/internal/config"
)

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "dspactl" {
		t.Errorf("expected 'dspactl', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty short description")
	}
}

func TestSubcommands_Registered(t *testing.T) {
	want := []string{
		"submit", "monitor [workflow]", "status [workflow]", "unstick <workflow>",
		"artifacts [run-id]", "doctor", "history", "version", "pipelines", "runs",
	}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Use] = true
	}
	for _, use := range want {
		if !registered[use] {
			t.Errorf("command %q not registered", use)
		}
	}
}

func TestResolveRunID_FromArgs(t *testing.T) {
	cfg := &config.Config{}
	runID, err := resolveRunID(cfg, []string{"abc-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID != "abc-123" {
		t.Errorf("expected 'abc-123', got '%s'", runID)
	}
}

func TestResolveRunID_FromHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h := state.NewHistory(path)
	if err := h.Append(state.Record{RunID: "old-run", Profile: "default"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := h.Append(state.Record{RunID: "new-run", Profile: "default"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	cfg := &config.Config{}
	cfg.History.Path = path
	runID, err := resolveRunID(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID != "new-run" {
		t.Errorf("expected latest run ID 'new-run', got '%s'", runID)
	}
}

func TestResolveRunID_EmptyHistory(t *testing.T) {
	cfg := &config.Config{}
	cfg.History.Path = filepath.Join(t.TempDir(), "history.json")
	if _, err := resolveRunID(cfg, nil); err == nil {
		t.Error("expected error with no args and empty history")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{5368709120, "5.0 GiB"},
		{1099511627776, "1.0 TiB"},
		{1125899906842624, "1.0 PiB"},
		{1152921504606846976, "1.0 EiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColorDisabled(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "xterm-256color")
	orig := noColor
	defer func() {
		noColor = orig
		viper.Set("no_color", false)
	}()

	noColor = false
	viper.Set("no_color", false)
	if colorDisabled() {
		t.Error("expected color enabled by default")
	}

	noColor = true
	if !colorDisabled() {
		t.Error("expected --no-color flag to disable color")
	}

	noColor = false
	viper.Set("no_color", true)
	if !colorDisabled() {
		t.Error("expected no_color config key to disable color")
	}

	viper.Set("no_color", false)
	t.Setenv("NO_COLOR", "1")
	if !colorDisabled() {
		t.Error("expected NO_COLOR env to disable color")
	}
}

func TestOrDash(t *testing.T) {
	if got := orDash(""); got != "-" {
		t.Errorf("expected '-', got '%s'", got)
	}
	if got := orDash("model-cache"); got != "model-cache" {
		t.Errorf("expected 'model-cache', got '%s'", got)
	}
}

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/petloan/dspactl/internal/adapters/cluster"
	"github.com/petloan/dspactl/internal/adapters/dspa"
	"github.com/petloan/dspactl/internal/adapters/state"
	"github.com/petloan/dspactl/internal/config"
	"github.com/petloan/dspactl/internal/kubeauth"
	"github.com/petloan/dspactl/internal/logging"
	"github.com/petloan/dspactl/internal/monitor"
)

// loadConfig loads and validates configuration from flags, env, and files.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the logger from config. Quiet mode raises the level so
// only warnings and errors surface.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if quiet {
		level = "warn"
	}
	return logging.New(logging.Config{
		Level:   level,
		Format:  cfg.Log.Format,
		Output:  os.Stderr,
		NoColor: colorDisabled(),
	})
}

// colorDisabled reports whether ANSI output is suppressed, either through the
// --no-color flag or the NO_COLOR convention (https://no-color.org).
func colorDisabled() bool {
	return noColor || viper.GetBool("no_color") || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
}

// newMonitorRenderer builds the status renderer for stdout, plain when color
// is suppressed.
func newMonitorRenderer() *monitor.Renderer {
	if colorDisabled() {
		return monitor.NewPlainRenderer(os.Stdout)
	}
	return monitor.NewRenderer(os.Stdout)
}

// newCluster builds the oc/kubectl adapter for the configured namespace.
func newCluster(cfg *config.Config, log *logging.Logger) (*cluster.Client, error) {
	return cluster.New(cfg.Kube.Binary, cfg.Namespace, cfg.Kube.CommandTimeout, log)
}

// dspaBaseURL resolves the DSPA endpoint. An explicit base URL wins, then
// route discovery when requested, otherwise the port-forward address.
func dspaBaseURL(ctx context.Context, cfg *config.Config, cl *cluster.Client, useRoute bool, log *logging.Logger) (string, error) {
	if cfg.DSPA.BaseURL != "" {
		return cfg.DSPA.BaseURL, nil
	}
	if useRoute || cfg.DSPA.UseRoute {
		host, err := cl.RouteHost(ctx, cfg.DSPA.RouteName)
		if err != nil {
			return "", err
		}
		return "https://" + host, nil
	}
	log.Info("using port-forwarded connection",
		"hint", fmt.Sprintf("oc port-forward -n %s svc/%s 8888:8888", cfg.Namespace, cfg.DSPA.RouteName))
	return cfg.DSPA.PortForwardURL, nil
}

// newDSPAClient resolves a token and builds the REST client.
func newDSPAClient(ctx context.Context, cfg *config.Config, cl *cluster.Client, baseURL string) (*dspa.Client, error) {
	token, err := kubeauth.Resolve(ctx, cfg.Kube.Token, cfg.Kube.Kubeconfig, cl)
	if err != nil {
		return nil, err
	}
	return dspa.New(baseURL, token, dspa.Options{
		Timeout:            cfg.Kube.CommandTimeout,
		InsecureSkipVerify: cfg.DSPA.InsecureSkipVerify,
		Namespace:          cfg.Namespace,
	}), nil
}

// newHistory builds the submission history store.
func newHistory(cfg *config.Config) *state.History {
	return state.NewHistory(cfg.History.Path)
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirm asks for interactive confirmation unless force is set.
func confirm(prompt string, force bool) bool {
	if force {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

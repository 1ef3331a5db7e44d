// Package kubeauth resolves the bearer token used against the DSPA API.
//
// Resolution order: an explicitly configured token, then the token stored
// in the local kubeconfig for the current context, then asking the cluster
// CLI (`oc whoami --show-token`).
package kubeauth

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/petloan/dspactl/internal/core"
)

// kubeconfig mirrors the fields needed to walk current-context -> user -> token.
type kubeconfig struct {
	CurrentContext string `yaml:"current-context"`
	Contexts       []struct {
		Name    string `yaml:"name"`
		Context struct {
			User string `yaml:"user"`
		} `yaml:"context"`
	} `yaml:"contexts"`
	Users []struct {
		Name string `yaml:"name"`
		User struct {
			Token string `yaml:"token"`
		} `yaml:"user"`
	} `yaml:"users"`
}

// DefaultKubeconfigPath returns ~/.kube/config, honoring KUBECONFIG.
func DefaultKubeconfigPath() string {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}

// TokenFromKubeconfig extracts the current context's user token from a
// kubeconfig file. Returns a not-found error when the file, context, or
// token is missing.
func TokenFromKubeconfig(path string) (string, error) {
	if path == "" {
		path = DefaultKubeconfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", core.ErrNotFound("kubeconfig", path).WithCause(err)
	}

	var cfg kubeconfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", core.ErrValidation(core.CodeParseFailed, "parsing kubeconfig").WithCause(err)
	}

	if cfg.CurrentContext == "" {
		return "", core.ErrNotFound("kubeconfig current-context", path)
	}

	var userName string
	for _, c := range cfg.Contexts {
		if c.Name == cfg.CurrentContext {
			userName = c.Context.User
			break
		}
	}
	if userName == "" {
		return "", core.ErrNotFound("kubeconfig context", cfg.CurrentContext)
	}

	for _, u := range cfg.Users {
		if u.Name == userName {
			if token := strings.TrimSpace(u.User.Token); token != "" {
				return token, nil
			}
			break
		}
	}
	return "", core.ErrNotFound("kubeconfig token for user", userName)
}

// WhoamiTokenSource asks the cluster CLI for the logged-in user's token.
type WhoamiTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Resolve returns the first available token: explicit, kubeconfig, whoami.
func Resolve(ctx context.Context, explicit, kubeconfigPath string, whoami WhoamiTokenSource) (string, error) {
	if token := strings.TrimSpace(explicit); token != "" {
		return token, nil
	}

	if token, err := TokenFromKubeconfig(kubeconfigPath); err == nil {
		return token, nil
	}

	if whoami != nil {
		token, err := whoami.Token(ctx)
		if err == nil && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
	}

	return "", core.ErrAuth("no OpenShift token found; log in with 'oc login' first")
}

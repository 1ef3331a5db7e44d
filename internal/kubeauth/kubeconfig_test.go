package kubeauth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petloan/dspactl/internal/core"
)

const sampleKubeconfig = `apiVersion: v1
kind: Config
current-context: petloan/api-cluster:6443/admin
contexts:
- name: petloan/api-cluster:6443/admin
  context:
    cluster: api-cluster:6443
    namespace: petloan-instructlab
    user: admin/api-cluster:6443
- name: other
  context:
    cluster: other-cluster
    user: other-user
users:
- name: other-user
  user:
    token: sha256~should-not-be-picked-aaaaaaaaaaaa
- name: admin/api-cluster:6443
  user:
    token: sha256~expected-token-value-bbbbbbbbbbbb
`

func writeKubeconfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTokenFromKubeconfig(t *testing.T) {
	path := writeKubeconfig(t, sampleKubeconfig)

	token, err := TokenFromKubeconfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sha256~expected-token-value-bbbbbbbbbbbb", token)
}

func TestTokenFromKubeconfigMissingFile(t *testing.T) {
	_, err := TokenFromKubeconfig(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestTokenFromKubeconfigNoToken(t *testing.T) {
	path := writeKubeconfig(t, `current-context: ctx
contexts:
- name: ctx
  context:
    user: alice
users:
- name: alice
  user:
    client-certificate: /tmp/cert.pem
`)

	_, err := TokenFromKubeconfig(path)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestTokenFromKubeconfigInvalidYAML(t *testing.T) {
	path := writeKubeconfig(t, "current-context: [unclosed")

	_, err := TokenFromKubeconfig(path)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

type fakeWhoami struct {
	token string
	err   error
	calls int
}

func (f *fakeWhoami) Token(ctx context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func TestResolveExplicitWins(t *testing.T) {
	whoami := &fakeWhoami{token: "sha256~from-whoami"}

	token, err := Resolve(context.Background(), "  sha256~explicit  ", "", whoami)
	require.NoError(t, err)
	assert.Equal(t, "sha256~explicit", token)
	assert.Zero(t, whoami.calls)
}

func TestResolveKubeconfigBeforeWhoami(t *testing.T) {
	path := writeKubeconfig(t, sampleKubeconfig)
	whoami := &fakeWhoami{token: "sha256~from-whoami"}

	token, err := Resolve(context.Background(), "", path, whoami)
	require.NoError(t, err)
	assert.Equal(t, "sha256~expected-token-value-bbbbbbbbbbbb", token)
	assert.Zero(t, whoami.calls)
}

func TestResolveFallsBackToWhoami(t *testing.T) {
	whoami := &fakeWhoami{token: "sha256~from-whoami\n"}

	token, err := Resolve(context.Background(), "", filepath.Join(t.TempDir(), "missing"), whoami)
	require.NoError(t, err)
	assert.Equal(t, "sha256~from-whoami", token)
	assert.Equal(t, 1, whoami.calls)
}

func TestResolveNothingAvailable(t *testing.T) {
	_, err := Resolve(context.Background(), "", filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatAuth))
}

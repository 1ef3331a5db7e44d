package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petloan/dspactl/internal/core"
)

type fakeObjects struct {
	objects    []minio.ObjectInfo
	listErr    error
	gotPrefix  string
	presignErr error
}

func (f *fakeObjects) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.gotPrefix = opts.Prefix
	ch := make(chan minio.ObjectInfo, len(f.objects)+1)
	for _, obj := range f.objects {
		ch <- obj
	}
	if f.listErr != nil {
		ch <- minio.ObjectInfo{Err: f.listErr}
	}
	close(ch)
	return ch
}

func (f *fakeObjects) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	return url.Parse("https://minio.example.com/" + bucket + "/" + key + "?sig=abc")
}

func TestListRunArtifactsSorted(t *testing.T) {
	api := &fakeObjects{objects: []minio.ObjectInfo{
		{Key: "artifacts/run-1/model/weights.bin", Size: 2048},
		{Key: "artifacts/run-1/eval/results.json", Size: 512},
	}}
	store := NewWithClient(api, "mlpipeline", "artifacts")

	artifacts, err := store.ListRunArtifacts(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "artifacts/run-1/eval/results.json", artifacts[0].Key)
	assert.Equal(t, "artifacts/run-1/model/weights.bin", artifacts[1].Key)
	assert.Equal(t, "artifacts/run-1/", api.gotPrefix)
}

func TestListRunArtifactsNoPrefix(t *testing.T) {
	api := &fakeObjects{}
	store := NewWithClient(api, "mlpipeline", "")

	_, err := store.ListRunArtifacts(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1/", api.gotPrefix)
}

func TestListRunArtifactsEmpty(t *testing.T) {
	store := NewWithClient(&fakeObjects{}, "mlpipeline", "artifacts")

	artifacts, err := store.ListRunArtifacts(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestListRunArtifactsError(t *testing.T) {
	api := &fakeObjects{listErr: errors.New("access denied")}
	store := NewWithClient(api, "mlpipeline", "artifacts")

	_, err := store.ListRunArtifacts(context.Background(), "run-1")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatAPI))
}

func TestListRunArtifactsRequiresRunID(t *testing.T) {
	store := NewWithClient(&fakeObjects{}, "mlpipeline", "artifacts")

	_, err := store.ListRunArtifacts(context.Background(), "")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestPresignGet(t *testing.T) {
	store := NewWithClient(&fakeObjects{}, "mlpipeline", "artifacts")

	u, err := store.PresignGet(context.Background(), "artifacts/run-1/model/weights.bin", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "mlpipeline/artifacts/run-1/model/weights.bin")
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

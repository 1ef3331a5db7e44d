// Package storage lists pipeline run artifacts in the DSPA's object store.
// The pipeline writes its outputs to the mlpipeline bucket keyed by run ID.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/petloan/dspactl/internal/core"
)

// Config locates the object store and bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// objectAPI is the slice of the minio client the store uses.
type objectAPI interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Artifact is one object produced by a pipeline run.
type Artifact struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store lists and presigns run artifacts.
type Store struct {
	api    objectAPI
	bucket string
	prefix string
}

// New connects to the object store.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "object store endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, core.ErrAPI(core.CodeCommandFailed, "connecting to object store").WithCause(err)
	}
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient builds a Store over an existing client.
func NewWithClient(api objectAPI, bucket, prefix string) *Store {
	return &Store{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// runPrefix returns the object key prefix for one run's artifacts.
func (s *Store) runPrefix(runID string) string {
	if s.prefix == "" {
		return runID + "/"
	}
	return s.prefix + "/" + runID + "/"
}

// ListRunArtifacts returns the artifacts a run produced, sorted by key.
func (s *Store) ListRunArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	if runID == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "run ID is required")
	}

	objects := s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.runPrefix(runID),
		Recursive: true,
	})

	artifacts := make([]Artifact, 0)
	for obj := range objects {
		if obj.Err != nil {
			return nil, core.ErrAPI(core.CodeCommandFailed,
				fmt.Sprintf("listing artifacts for run %s", runID)).WithCause(obj.Err)
		}
		artifacts = append(artifacts, Artifact{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Key < artifacts[j].Key })
	return artifacts, nil
}

// PresignGet returns a temporary download URL for an artifact.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", core.ErrAPI(core.CodeCommandFailed,
			fmt.Sprintf("presigning %s", key)).WithCause(err)
	}
	return u.String(), nil
}

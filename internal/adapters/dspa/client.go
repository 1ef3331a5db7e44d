// Package dspa is a thin REST client for the Data Science Pipelines
// Application API. The v2beta1 surface is the default; the v1beta1 calls
// remain for clusters still running the legacy KFP endpoints.
package dspa

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/petloan/dspactl/internal/core"
)

const (
	v2Prefix = "/apis/v2beta1"
	v1Prefix = "/apis/v1beta1"
)

// Client talks to one DSPA endpoint with a bearer token.
type Client struct {
	baseURL   string
	token     string
	namespace string
	http      *http.Client
}

// Options tunes client construction.
type Options struct {
	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS verification. Port-forwarded
	// endpoints present the service cert, which never matches localhost.
	InsecureSkipVerify bool
	// Namespace scopes legacy v1beta1 pipeline listings via a
	// resource_reference_key filter.
	Namespace string
}

// New creates a DSPA client for the given base URL.
func New(baseURL, token string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if opts.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		namespace: opts.Namespace,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
}

// BaseURL returns the endpoint the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the DSPA API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dspa api: status %d: %s", e.StatusCode, e.Body)
}

// do issues a request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return core.ErrAPI(core.CodeParseFailed, "encoding request body").WithCause(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return core.ErrAPI(core.CodeParseFailed, "building request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return core.ErrTimeout("dspa api request timed out").WithCause(err)
		}
		return core.ErrAPI(core.CodeCommandFailed, fmt.Sprintf("%s %s", method, path)).WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.ErrAuth(fmt.Sprintf("dspa api rejected the token (status %d)", resp.StatusCode))
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return core.ErrAPI(core.CodeParseFailed, fmt.Sprintf("decoding %s response", path)).WithCause(err)
		}
		return nil
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.ErrAPI(core.CodeCommandFailed, "").WithCause(&APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		})
	}
}

// ListPipelines returns the registered pipelines.
func (c *Client) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	var list pipelineList
	if err := c.do(ctx, http.MethodGet, v2Prefix+"/pipelines", nil, &list); err != nil {
		return nil, err
	}
	return list.Pipelines, nil
}

// FindPipeline resolves a pipeline by display name. An exact match wins;
// otherwise the first case-insensitive substring match is used, so
// "InstructLab" still finds "instructlab-pipeline".
func (c *Client) FindPipeline(ctx context.Context, name string) (*Pipeline, error) {
	pipelines, err := c.ListPipelines(ctx)
	if err != nil {
		return nil, err
	}

	for i := range pipelines {
		if pipelines[i].DisplayName == name {
			return &pipelines[i], nil
		}
	}
	lower := strings.ToLower(name)
	for i := range pipelines {
		if strings.Contains(strings.ToLower(pipelines[i].DisplayName), lower) {
			return &pipelines[i], nil
		}
	}
	return nil, core.ErrAPI(core.CodePipelineNotFound,
		fmt.Sprintf("no pipeline matching %q registered with the DSPA", name))
}

// ListVersions returns the versions of a pipeline, newest first.
func (c *Client) ListVersions(ctx context.Context, pipelineID string) ([]PipelineVersion, error) {
	var list pipelineVersionList
	path := fmt.Sprintf("%s/pipelines/%s/versions", v2Prefix, pipelineID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Versions, nil
}

// LatestVersion returns the first listed version of a pipeline.
func (c *Client) LatestVersion(ctx context.Context, pipelineID string) (*PipelineVersion, error) {
	versions, err := c.ListVersions(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, core.ErrAPI(core.CodeVersionNotFound,
			fmt.Sprintf("pipeline %s has no versions", pipelineID))
	}
	return &versions[0], nil
}

// CreateRun submits a new pipeline run.
func (c *Client) CreateRun(ctx context.Context, req *RunRequest) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, v2Prefix+"/runs", req, &run); err != nil {
		return nil, err
	}
	if run.ID == "" {
		return nil, core.ErrAPI(core.CodeSubmitFailed, "run created but no run_id returned")
	}
	return &run, nil
}

// GetRun fetches one run by ID.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, v2Prefix+"/runs/"+runID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns recent runs, newest first.
func (c *Client) ListRuns(ctx context.Context, pageSize int) ([]Run, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	var list runList
	path := fmt.Sprintf("%s/runs?page_size=%d&sort_by=created_at desc", v2Prefix, pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Runs, nil
}

// ListPipelinesV1 returns pipelines from the legacy API, scoped to the
// client's namespace via a resource reference filter.
func (c *Client) ListPipelinesV1(ctx context.Context) ([]V1Pipeline, error) {
	path := v1Prefix + "/pipelines"
	if c.namespace != "" {
		query := url.Values{}
		query.Set("resource_reference_key.type", "NAMESPACE")
		query.Set("resource_reference_key.id", c.namespace)
		path += "?" + query.Encode()
	}

	var list v1PipelineList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Pipelines, nil
}

// FindPipelineV1 resolves a legacy pipeline by name: exact match, then
// case-insensitive substring, then the first listed pipeline. The listing
// is already namespace-scoped, so with one pipeline registered the
// fallback finds it regardless of its display name.
func (c *Client) FindPipelineV1(ctx context.Context, name string) (*V1Pipeline, error) {
	pipelines, err := c.ListPipelinesV1(ctx)
	if err != nil {
		return nil, err
	}
	for i := range pipelines {
		if pipelines[i].Name == name {
			return &pipelines[i], nil
		}
	}
	lower := strings.ToLower(name)
	for i := range pipelines {
		if strings.Contains(strings.ToLower(pipelines[i].Name), lower) {
			return &pipelines[i], nil
		}
	}
	if len(pipelines) > 0 {
		return &pipelines[0], nil
	}
	return nil, core.ErrAPI(core.CodePipelineNotFound,
		fmt.Sprintf("no pipeline matching %q registered with the DSPA", name))
}

// CreateRunV1 submits a run through the legacy API.
func (c *Client) CreateRunV1(ctx context.Context, req *V1RunRequest) (*V1Run, error) {
	var envelope v1RunEnvelope
	if err := c.do(ctx, http.MethodPost, v1Prefix+"/runs", req, &envelope); err != nil {
		return nil, err
	}
	if envelope.Run.ID == "" {
		return nil, core.ErrAPI(core.CodeSubmitFailed, "run created but no id returned")
	}
	return &envelope.Run, nil
}

// GetRunV1 fetches a legacy run along with the workflow snapshot decoded
// from the embedded manifest, when the orchestrator has produced one.
func (c *Client) GetRunV1(ctx context.Context, runID string) (*V1Run, *core.WorkflowSnapshot, error) {
	var envelope v1RunEnvelope
	if err := c.do(ctx, http.MethodGet, v1Prefix+"/runs/"+runID, nil, &envelope); err != nil {
		return nil, nil, err
	}

	var snapshot *core.WorkflowSnapshot
	if manifest := envelope.PipelineRuntime.WorkflowManifest; manifest != "" {
		snap, err := core.ParseWorkflowJSON([]byte(manifest))
		if err == nil {
			snapshot = snap
		}
	}
	return &envelope.Run, snapshot, nil
}

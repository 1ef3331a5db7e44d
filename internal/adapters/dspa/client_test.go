package dspa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petloan/dspactl/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "sha256~test-token", Options{InsecureSkipVerify: true})
}

func TestFindPipelineExactBeatsSubstring(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/v2beta1/pipelines", r.URL.Path)
		assert.Equal(t, "Bearer sha256~test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"pipelines": []map[string]string{
				{"pipeline_id": "p-1", "display_name": "instructlab-legacy"},
				{"pipeline_id": "p-2", "display_name": "InstructLab"},
			},
		})
	})

	p, err := client.FindPipeline(context.Background(), "InstructLab")
	require.NoError(t, err)
	assert.Equal(t, "p-2", p.ID)
}

func TestFindPipelineSubstringFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"pipelines": []map[string]string{
				{"pipeline_id": "p-1", "display_name": "instructlab-pipeline"},
			},
		})
	})

	p, err := client.FindPipeline(context.Background(), "InstructLab")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
}

func TestFindPipelineNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"pipelines": []any{}})
	})

	_, err := client.FindPipeline(context.Background(), "InstructLab")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatAPI))
}

func TestCreateRunPayloadShape(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/apis/v2beta1/runs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{
			"run_id":       "run-abc",
			"display_name": "instructlab-pipeline-run",
		})
	})

	run, err := client.CreateRun(context.Background(), &RunRequest{
		DisplayName: "instructlab-pipeline-run",
		VersionReference: VersionReference{
			PipelineID:        "p-1",
			PipelineVersionID: "v-1",
		},
		RuntimeConfig: RuntimeConfig{Parameters: map[string]any{
			"train_gpu_per_worker": 1,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-abc", run.ID)

	ref, ok := got["pipeline_version_reference"].(map[string]any)
	require.True(t, ok, "payload must use pipeline_version_reference")
	assert.Equal(t, "p-1", ref["pipeline_id"])
	assert.Equal(t, "v-1", ref["pipeline_version_id"])
	rc, ok := got["runtime_config"].(map[string]any)
	require.True(t, ok, "payload must use runtime_config")
	assert.Contains(t, rc, "parameters")
}

func TestCreateRunMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.CreateRun(context.Background(), &RunRequest{DisplayName: "x"})
	require.Error(t, err)
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListPipelines(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatAuth))
}

func TestServerErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.ListPipelines(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Body)
}

func newTestClientV1(t *testing.T, namespace string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "sha256~test-token", Options{
		InsecureSkipVerify: true,
		Namespace:          namespace,
	})
}

func TestListPipelinesV1FiltersByNamespace(t *testing.T) {
	client := newTestClientV1(t, "petloan-instructlab", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/v1beta1/pipelines", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "NAMESPACE", query.Get("resource_reference_key.type"))
		assert.Equal(t, "petloan-instructlab", query.Get("resource_reference_key.id"))
		json.NewEncoder(w).Encode(map[string]any{
			"pipelines": []map[string]string{{"id": "p-1", "name": "instructlab"}},
		})
	})

	pipelines, err := client.ListPipelinesV1(context.Background())
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "p-1", pipelines[0].ID)
}

func TestFindPipelineV1FallsBackToFirstListed(t *testing.T) {
	client := newTestClientV1(t, "petloan-instructlab", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"pipelines": []map[string]string{
				{"id": "p-1", "name": "granite-finetune"},
				{"id": "p-2", "name": "other"},
			},
		})
	})

	// No name match: the namespace-scoped listing's first entry wins.
	p, err := client.FindPipelineV1(context.Background(), "InstructLab")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
}

func TestFindPipelineV1EmptyListing(t *testing.T) {
	client := newTestClientV1(t, "petloan-instructlab", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"pipelines": []any{}})
	})

	_, err := client.FindPipelineV1(context.Background(), "InstructLab")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatAPI))
}

func TestCreateRunV1PayloadShape(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/v1beta1/runs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"run": map[string]string{"id": "v1-run-1", "name": "InstructLab-Production-123"},
		})
	})

	run, err := client.CreateRunV1(context.Background(), &V1RunRequest{
		DisplayName: "InstructLab-Production-123",
		PipelineSpec: V1PipelineSpec{
			PipelineID: "p-1",
			Parameters: []V1Parameter{{Name: "sdg_scale_factor", Value: "2"}},
		},
		ResourceReferences: []V1ResourceReference{{
			Key:          V1ResourceKey{Type: "NAMESPACE", ID: "petloan-instructlab"},
			Relationship: "OWNER",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "v1-run-1", run.ID)

	assert.Equal(t, "InstructLab-Production-123", got["display_name"])
	spec, ok := got["pipeline_spec"].(map[string]any)
	require.True(t, ok, "payload must use pipeline_spec")
	params, ok := spec["parameters"].([]any)
	require.True(t, ok)
	first := params[0].(map[string]any)
	assert.Equal(t, "sdg_scale_factor", first["name"])
	assert.Equal(t, "2", first["value"])
	refs, ok := got["resource_references"].([]any)
	require.True(t, ok, "payload must carry resource_references")
	ref := refs[0].(map[string]any)
	assert.Equal(t, "OWNER", ref["relationship"])
}

func TestGetRunV1DecodesWorkflowManifest(t *testing.T) {
	manifest := `{"metadata":{"name":"instructlab-abc"},"status":{"phase":"Running","nodes":{"n1":{"id":"n1","displayName":"sdg-op","phase":"Succeeded"}}}}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"run":              map[string]string{"id": "v1-run-1", "name": "x", "status": "Running"},
			"pipeline_runtime": map[string]string{"workflow_manifest": manifest},
		})
	})

	run, snap, err := client.GetRunV1(context.Background(), "v1-run-1")
	require.NoError(t, err)
	assert.Equal(t, "Running", run.Status)
	require.NotNil(t, snap)
	assert.Equal(t, "instructlab-abc", snap.Name)
	assert.Equal(t, core.WorkflowRunning, snap.Phase)
	assert.Len(t, snap.Nodes, 1)
}

func TestLatestVersionEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"pipeline_versions": []any{}})
	})

	_, err := client.LatestVersion(context.Background(), "p-1")
	require.Error(t, err)
}

package profiles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petloan/dspactl/internal/core"
)

func TestGetKnownProfiles(t *testing.T) {
	for _, name := range []string{"default", "cuda-fixed", "storage-fixed", "complete", "production", "nfs-storage"} {
		p, err := Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
	}
}

func TestGetUnknownProfile(t *testing.T) {
	_, err := Get("turbo")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.Contains(t, err.Error(), "cuda-fixed")
}

func TestNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"complete", "cuda-fixed", "default", "nfs-storage", "production", "storage-fixed"}, Names())
}

func TestProfileAPIVersions(t *testing.T) {
	for name, want := range map[string]APIVersion{
		"default":       APIV2,
		"cuda-fixed":    APIV2,
		"storage-fixed": APIV2,
		"complete":      APIV2,
		"production":    APIV1,
		"nfs-storage":   APIV1,
	} {
		p, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, want, p.API, name)
	}
}

func TestDefaultProfileValues(t *testing.T) {
	p, err := Get("default")
	require.NoError(t, err)

	assert.Equal(t, "instructlab-pipeline-run", p.DisplayName)
	assert.Equal(t, 30, p.Parameters["sdg_scale_factor"])
	assert.Equal(t, 4, p.Parameters["train_num_workers"])
	assert.Equal(t, 3840, p.Parameters["train_effective_batch_size_phase_1"])
	assert.Equal(t, "auto", p.Parameters["mt_bench_max_workers"])
	assert.Equal(t, "gp3", p.Parameters["k8s_storage_class_name"])
	assert.Equal(t, map[string]string{}, p.Parameters["train_node_selectors"])
}

func TestCudaFixedShrinksGPUPressure(t *testing.T) {
	p, err := Get("cuda-fixed")
	require.NoError(t, err)

	assert.Equal(t, 1, p.Parameters["sdg_scale_factor"])
	assert.Equal(t, 1, p.Parameters["train_num_workers"])
	assert.Equal(t, 128, p.Parameters["train_effective_batch_size_phase_1"])
	assert.Equal(t, "2", p.Parameters["mt_bench_max_workers"])
	assert.Equal(t, map[string]string{"node-role.kubernetes.io/gpu": ""},
		p.Parameters["train_node_selectors"])
}

func TestStorageFixedUsesSimpleSDGPipeline(t *testing.T) {
	p, err := Get("storage-fixed")
	require.NoError(t, err)

	assert.Equal(t, "/usr/share/instructlab/sdg/pipelines/simple", p.Parameters["sdg_pipeline"])
	assert.Equal(t, 2048, p.Parameters["train_max_batch_len"])
	assert.Equal(t, 42, p.Parameters["train_seed"])
}

func TestCompleteUsesFullSDGPipeline(t *testing.T) {
	p, err := Get("complete")
	require.NoError(t, err)

	assert.Equal(t, "/usr/share/instructlab/sdg/pipelines/full", p.Parameters["sdg_pipeline"])
	assert.Equal(t, 2, p.Parameters["train_num_epochs_phase_1"])
	assert.Equal(t, 3, p.Parameters["train_num_epochs_phase_2"])
	assert.Equal(t, 4096, p.Parameters["train_max_batch_len"])
}

func TestApplyOverridesDoesNotMutateProfile(t *testing.T) {
	p, err := Get("default")
	require.NoError(t, err)

	params := p.Apply(Overrides{
		RepoURL:         "https://github.com/example/taxonomy.git",
		BaseModel:       "oci://example.com/models/custom",
		OutputModelName: "my-model",
	})

	assert.Equal(t, "https://github.com/example/taxonomy.git", params["sdg_repo_url"])
	assert.Equal(t, "oci://example.com/models/custom", params["sdg_base_model"])
	assert.Equal(t, "my-model", params["output_model_name"])

	assert.Equal(t, "https://github.com/cnuland/hello-chris-dev-taxonomy.git",
		p.Parameters["sdg_repo_url"], "registry profile must stay pristine")
	assert.Equal(t, "fine-tuned-granite-7b", p.Parameters["output_model_name"])
}

func TestApplyEmptyOverrides(t *testing.T) {
	p, err := Get("cuda-fixed")
	require.NoError(t, err)

	params := p.Apply(Overrides{})
	assert.Equal(t, "fine-tuned-granite-7b-fixed", params["output_model_name"])
	assert.Len(t, params, len(p.Parameters))
}

func TestV1ProfilesDifferOnlyInStorageClass(t *testing.T) {
	prod, err := Get("production")
	require.NoError(t, err)
	nfs, err := Get("nfs-storage")
	require.NoError(t, err)

	assert.Equal(t, "Complete InstructLab pipeline run with NFS storage for RWX volumes", nfs.Description)

	require.Len(t, prod.V1Parameters, len(nfs.V1Parameters))
	for i, param := range prod.V1Parameters {
		if param.Name == "storage_class_name" {
			assert.Equal(t, "gp3", param.Value)
			assert.Equal(t, "nfs-manual", nfs.V1Parameters[i].Value)
			continue
		}
		assert.Equal(t, param, nfs.V1Parameters[i])
	}
}

func TestApplyV1BaseModelOverride(t *testing.T) {
	p, err := Get("production")
	require.NoError(t, err)

	params := p.ApplyV1(Overrides{BaseModel: "instructlab/granite-8b-lab"})
	found := false
	for _, param := range params {
		if param.Name == "model_to_train" {
			assert.Equal(t, "instructlab/granite-8b-lab", param.Value)
			found = true
		}
	}
	assert.True(t, found)

	for _, param := range p.V1Parameters {
		if param.Name == "model_to_train" {
			assert.Equal(t, "instructlab/granite-7b-lab", param.Value, "registry list must stay pristine")
		}
	}
}

func TestRunDisplayName(t *testing.T) {
	now := time.Unix(1700000000, 0)

	p, err := Get("production")
	require.NoError(t, err)
	assert.Equal(t, "InstructLab-Production-1700000000", p.RunDisplayName(now))

	p, err = Get("nfs-storage")
	require.NoError(t, err)
	assert.Equal(t, "InstructLab-Complete-NFS-1700000000", p.RunDisplayName(now))

	p, err = Get("default")
	require.NoError(t, err)
	assert.Equal(t, "instructlab-pipeline-run", p.RunDisplayName(now))
}

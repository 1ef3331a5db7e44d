// Package profiles holds the curated parameter sets for InstructLab
// pipeline runs. Each profile encodes a configuration that was proven
// against a specific production failure mode; the values are deliberate
// and should not be tweaked casually.
package profiles

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/petloan/dspactl/internal/adapters/dspa"
	"github.com/petloan/dspactl/internal/core"
)

// APIVersion selects which DSPA API generation a profile targets.
type APIVersion string

const (
	APIV2 APIVersion = "v2beta1"
	APIV1 APIVersion = "v1beta1"
)

// Overrides are the few knobs callers may change per run.
type Overrides struct {
	RepoURL         string
	BaseModel       string
	OutputModelName string
}

// Profile is a named, fixed parameter set for one pipeline submission.
type Profile struct {
	Name        string
	API         APIVersion
	DisplayName string
	Description string
	// Parameters for v2 profiles, keyed by pipeline input name.
	Parameters map[string]any
	// V1Parameters for legacy profiles, order preserved.
	V1Parameters []dspa.V1Parameter
	// TimestampedName appends a unix timestamp to DisplayName, matching
	// how the legacy runs were named.
	TimestampedName bool
}

// toleration mirrors the pod toleration shape the pipeline expects.
type toleration struct {
	Key      string `json:"key"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Effect   string `json:"effect"`
}

var gpuToleration = []toleration{{
	Key:      "nvidia.com/gpu",
	Operator: "Equal",
	Value:    "true",
	Effect:   "NoSchedule",
}}

// RunDisplayName returns the display name for a new run, timestamped for
// the legacy profiles.
func (p *Profile) RunDisplayName(now time.Time) string {
	if p.TimestampedName {
		return fmt.Sprintf("%s-%d", p.DisplayName, now.Unix())
	}
	return p.DisplayName
}

// Apply returns the profile's v2 parameters with overrides folded in.
// The receiver's map is not modified.
func (p *Profile) Apply(o Overrides) map[string]any {
	params := make(map[string]any, len(p.Parameters))
	for k, v := range p.Parameters {
		params[k] = v
	}
	if o.RepoURL != "" {
		params["sdg_repo_url"] = o.RepoURL
	}
	if o.BaseModel != "" {
		params["sdg_base_model"] = o.BaseModel
	}
	if o.OutputModelName != "" {
		params["output_model_name"] = o.OutputModelName
	}
	return params
}

// ApplyV1 returns the profile's legacy parameter list with overrides
// folded in. BaseModel maps onto the model_to_train input.
func (p *Profile) ApplyV1(o Overrides) []dspa.V1Parameter {
	params := make([]dspa.V1Parameter, len(p.V1Parameters))
	copy(params, p.V1Parameters)
	if o.BaseModel != "" {
		for i := range params {
			if params[i].Name == "model_to_train" {
				params[i].Value = o.BaseModel
			}
		}
	}
	return params
}

// Get resolves a profile by name.
func Get(name string) (*Profile, error) {
	p, ok := registry[name]
	if !ok {
		return nil, core.ErrValidation(core.CodeUnknownProfile,
			fmt.Sprintf("unknown profile %q (available: %s)", name, strings.Join(Names(), ", ")))
	}
	return p, nil
}

// Names lists the registered profile names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var registry = map[string]*Profile{
	"default":       defaultProfile,
	"cuda-fixed":    cudaFixedProfile,
	"storage-fixed": storageFixedProfile,
	"complete":      completeProfile,
	"production":    productionProfile,
	"nfs-storage":   nfsStorageProfile,
}

// defaultProfile is the full production configuration: multi-phase
// training across four workers with a large synthetic data batch.
var defaultProfile = &Profile{
	Name:        "default",
	API:         APIV2,
	DisplayName: "instructlab-pipeline-run",
	Description: "InstructLab SDG and Training Pipeline Run",
	Parameters: map[string]any{
		"output_model_name":             "fine-tuned-granite-7b",
		"output_model_registry_api_url": "",
		"output_model_registry_name":    "",
		"output_model_version":          "",
		"output_oci_model_uri":          "",
		"output_oci_registry_secret":    "oci-output-push-secret",
		"sdg_base_model":                "oci://registry.redhat.io/rhoai/granite-7b-starter",
		"sdg_repo_url":                  "https://github.com/cnuland/hello-chris-dev-taxonomy.git",
		"train_node_selectors":          map[string]string{},
		"train_tolerations":             gpuToleration,

		"sdg_teacher_secret":     "teacher-secret",
		"sdg_repo_secret":        "taxonomy-repo-secret",
		"eval_judge_secret":      "judge-secret",
		"train_gpu_identifier":   "nvidia.com/gpu",
		"eval_gpu_identifier":    "nvidia.com/gpu",
		"k8s_storage_class_name": "gp3",
		"k8s_storage_size":       "50Gi",

		"sdg_scale_factor":                   30,
		"train_num_epochs_phase_1":           7,
		"train_num_epochs_phase_2":           10,
		"train_effective_batch_size_phase_1": 3840,
		"train_effective_batch_size_phase_2": 3840,
		"train_learning_rate_phase_1":        2e-6,
		"train_learning_rate_phase_2":        1e-6,
		"train_cpu_per_worker":               "8",
		"train_memory_per_worker":            "32Gi",
		"train_gpu_per_worker":               1,
		"train_num_workers":                  4,
		"sdg_batch_size":                     10,
		"sdg_num_workers":                    4,

		"mt_bench_merge_system_user_message":   false,
		"final_eval_merge_system_user_message": false,
		"mt_bench_max_workers":                 "auto",
		"final_eval_max_workers":               "auto",
		"final_eval_batch_size":                "auto",
		"final_eval_few_shots":                 5,
	},
}

// cudaFixedProfile shrinks every GPU-touching knob after repeated CUDA
// out-of-memory failures: single worker, tiny batches, one epoch per
// phase, and fixed eval workers instead of "auto".
var cudaFixedProfile = &Profile{
	Name:        "cuda-fixed",
	API:         APIV2,
	DisplayName: "instructlab-cuda-fixed-run",
	Description: "InstructLab Pipeline - CUDA Error Fixed Configuration",
	Parameters: map[string]any{
		"output_model_name":             "fine-tuned-granite-7b-fixed",
		"output_model_registry_api_url": "",
		"output_model_registry_name":    "",
		"output_model_version":          "",
		"output_oci_model_uri":          "",
		"output_oci_registry_secret":    "oci-output-push-secret",
		"sdg_base_model":                "oci://registry.redhat.io/rhoai/granite-7b-starter",
		"sdg_repo_url":                  "https://github.com/cnuland/hello-chris-dev-taxonomy.git",
		"train_node_selectors": map[string]string{
			"node-role.kubernetes.io/gpu": "",
		},
		"train_tolerations": gpuToleration,

		"sdg_teacher_secret":     "teacher-secret",
		"sdg_repo_secret":        "taxonomy-repo-secret",
		"eval_judge_secret":      "judge-secret",
		"train_gpu_identifier":   "nvidia.com/gpu",
		"eval_gpu_identifier":    "nvidia.com/gpu",
		"k8s_storage_class_name": "gp3",
		"k8s_storage_size":       "50Gi",

		"sdg_scale_factor":                   1,
		"train_num_epochs_phase_1":           1,
		"train_num_epochs_phase_2":           1,
		"train_effective_batch_size_phase_1": 128,
		"train_effective_batch_size_phase_2": 128,
		"train_learning_rate_phase_1":        1e-5,
		"train_learning_rate_phase_2":        5e-6,
		"train_cpu_per_worker":               "4",
		"train_memory_per_worker":            "16Gi",
		"train_gpu_per_worker":               1,
		"train_num_workers":                  1,
		"sdg_batch_size":                     2,
		"sdg_num_workers":                    2,

		"mt_bench_merge_system_user_message":   false,
		"final_eval_merge_system_user_message": false,
		"mt_bench_max_workers":                 "2",
		"final_eval_max_workers":               "2",
		"final_eval_batch_size":                "2",
		"final_eval_few_shots":                 1,
	},
}

// storageFixedProfile is the RWO storage configuration: gp3 volumes, no
// node selectors, and the simple SDG pipeline for faster turnaround.
var storageFixedProfile = &Profile{
	Name:        "storage-fixed",
	API:         APIV2,
	DisplayName: "instructlab-storage-fixed-run",
	Description: "InstructLab Pipeline - Storage Access Mode Fixed (RWO instead of RWX)",
	Parameters: map[string]any{
		"output_model_name":             "fine-tuned-granite-7b-storage-fixed",
		"output_model_registry_api_url": "",
		"output_model_registry_name":    "",
		"output_model_version":          "",
		"output_oci_model_uri":          "",
		"output_oci_registry_secret":    "oci-output-push-secret",
		"sdg_base_model":                "oci://registry.redhat.io/rhoai/granite-7b-starter",
		"sdg_repo_url":                  "https://github.com/cnuland/hello-chris-dev-taxonomy.git",
		"train_node_selectors":          map[string]string{},
		"train_tolerations":             gpuToleration,

		"sdg_teacher_secret":     "teacher-secret",
		"sdg_repo_secret":        "taxonomy-repo-secret",
		"eval_judge_secret":      "judge-secret",
		"train_gpu_identifier":   "nvidia.com/gpu",
		"eval_gpu_identifier":    "nvidia.com/gpu",
		"k8s_storage_class_name": "gp3",
		"k8s_storage_size":       "50Gi",

		"sdg_scale_factor":                   3,
		"train_num_epochs_phase_1":           1,
		"train_num_epochs_phase_2":           1,
		"train_effective_batch_size_phase_1": 128,
		"train_effective_batch_size_phase_2": 128,
		"train_learning_rate_phase_1":        1e-5,
		"train_learning_rate_phase_2":        5e-6,
		"train_cpu_per_worker":               "4",
		"train_memory_per_worker":            "16Gi",
		"train_gpu_per_worker":               1,
		"train_num_workers":                  1,
		"sdg_batch_size":                     2,
		"sdg_num_workers":                    2,

		"mt_bench_merge_system_user_message":   false,
		"final_eval_merge_system_user_message": false,
		"mt_bench_max_workers":                 "2",
		"final_eval_max_workers":               "2",
		"final_eval_batch_size":                "2",
		"final_eval_few_shots":                 1,

		"train_num_warmup_steps_phase_1": 50,
		"train_num_warmup_steps_phase_2": 50,
		"train_save_samples":             25000,
		"train_seed":                     42,
		"train_max_batch_len":            2048,
		"sdg_max_batch_len":              2048,
		"sdg_sample_size":                1.0,
		"sdg_pipeline":                   "/usr/share/instructlab/sdg/pipelines/simple",
	},
}

// completeProfile balances realism against completion: two-phase training
// with meaningful epochs but a single worker so scheduling cannot wedge it.
var completeProfile = &Profile{
	Name:        "complete",
	API:         APIV2,
	DisplayName: "instructlab-complete-training-run",
	Description: "InstructLab Complete Model Training Pipeline - Optimized for Full Completion",
	Parameters: map[string]any{
		"output_model_name":             "fine-tuned-granite-7b-complete",
		"output_model_registry_api_url": "",
		"output_model_registry_name":    "",
		"output_model_version":          "",
		"output_oci_model_uri":          "",
		"output_oci_registry_secret":    "oci-output-push-secret",
		"sdg_base_model":                "oci://registry.redhat.io/rhoai/granite-7b-starter",
		"sdg_repo_url":                  "https://github.com/cnuland/hello-chris-dev-taxonomy.git",
		"train_node_selectors":          map[string]string{},
		"train_tolerations":             gpuToleration,

		"sdg_teacher_secret":     "teacher-secret",
		"sdg_repo_secret":        "taxonomy-repo-secret",
		"eval_judge_secret":      "judge-secret",
		"train_gpu_identifier":   "nvidia.com/gpu",
		"eval_gpu_identifier":    "nvidia.com/gpu",
		"k8s_storage_class_name": "gp3",
		"k8s_storage_size":       "50Gi",

		"sdg_scale_factor":                   5,
		"train_num_epochs_phase_1":           2,
		"train_num_epochs_phase_2":           3,
		"train_effective_batch_size_phase_1": 256,
		"train_effective_batch_size_phase_2": 256,
		"train_learning_rate_phase_1":        2e-5,
		"train_learning_rate_phase_2":        1e-5,
		"train_cpu_per_worker":               "6",
		"train_memory_per_worker":            "24Gi",
		"train_gpu_per_worker":               1,
		"train_num_workers":                  1,
		"sdg_batch_size":                     4,
		"sdg_num_workers":                    4,

		"mt_bench_merge_system_user_message":   false,
		"final_eval_merge_system_user_message": false,
		"mt_bench_max_workers":                 "2",
		"final_eval_max_workers":               "2",
		"final_eval_batch_size":                "4",
		"final_eval_few_shots":                 2,

		"train_num_warmup_steps_phase_1": 100,
		"train_num_warmup_steps_phase_2": 100,
		"train_save_samples":             50000,
		"train_seed":                     42,
		"train_max_batch_len":            4096,
		"sdg_max_batch_len":              4096,
		"sdg_sample_size":                1.0,
		"sdg_pipeline":                   "/usr/share/instructlab/sdg/pipelines/full",
	},
}

// v1BaseParameters are shared by the legacy profiles; only the storage
// class differs between them.
func v1BaseParameters(storageClass string) []dspa.V1Parameter {
	return []dspa.V1Parameter{
		{Name: "model_to_train", Value: "instructlab/granite-7b-lab"},
		{Name: "num_epochs", Value: "10"},
		{Name: "learning_rate", Value: "0.0002"},
		{Name: "num_instructions_to_generate", Value: "100"},
		{Name: "taxonomy_repo_branch", Value: "main"},
		{Name: "mmlu_branch", Value: "main"},
		{Name: "mt_bench_branch", Value: "main"},
		{Name: "storage_class_name", Value: storageClass},
		{Name: "pipeline_output_directory", Value: "/tmp/instructlab"},
		{Name: "enable_lora", Value: "true"},
		{Name: "lora_rank", Value: "4"},
		{Name: "lora_alpha", Value: "32"},
		{Name: "batch_size", Value: "1"},
		{Name: "gradient_accumulation_steps", Value: "4"},
		{Name: "warmup_steps", Value: "10"},
		{Name: "save_samples", Value: "0"},
		{Name: "log_level", Value: "INFO"},
		{Name: "max_batch_len", Value: "60000"},
		{Name: "seed", Value: "42"},
	}
}

var productionProfile = &Profile{
	Name:            "production",
	API:             APIV1,
	DisplayName:     "InstructLab-Production",
	Description:     "Production InstructLab pipeline run with proven stable configuration",
	TimestampedName: true,
	V1Parameters:    v1BaseParameters("gp3"),
}

// nfsStorageProfile targets clusters where block storage kept failing to
// attach; nfs-manual volumes sidestep the access-mode problem entirely.
var nfsStorageProfile = &Profile{
	Name:            "nfs-storage",
	API:             APIV1,
	DisplayName:     "InstructLab-Complete-NFS",
	Description:     "Complete InstructLab pipeline run with NFS storage for RWX volumes",
	TimestampedName: true,
	V1Parameters:    v1BaseParameters("nfs-manual"),
}

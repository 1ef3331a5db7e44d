package dspa

import "time"

// Pipeline is a registered pipeline in the v2beta1 API.
type Pipeline struct {
	ID          string    `json:"pipeline_id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type pipelineList struct {
	Pipelines []Pipeline `json:"pipelines"`
	TotalSize int        `json:"total_size"`
}

// PipelineVersion is one uploaded version of a pipeline.
type PipelineVersion struct {
	ID          string    `json:"pipeline_version_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type pipelineVersionList struct {
	Versions  []PipelineVersion `json:"pipeline_versions"`
	TotalSize int               `json:"total_size"`
}

// VersionReference points a run at a specific pipeline version.
type VersionReference struct {
	PipelineID        string `json:"pipeline_id"`
	PipelineVersionID string `json:"pipeline_version_id"`
}

// RuntimeConfig carries the run's input parameters.
type RuntimeConfig struct {
	Parameters map[string]any `json:"parameters"`
}

// RunRequest is the v2beta1 run creation payload.
type RunRequest struct {
	DisplayName      string           `json:"display_name"`
	Description      string           `json:"description,omitempty"`
	VersionReference VersionReference `json:"pipeline_version_reference"`
	RuntimeConfig    RuntimeConfig    `json:"runtime_config"`
}

// Run is a pipeline run as reported by the v2beta1 API.
type Run struct {
	ID          string    `json:"run_id"`
	DisplayName string    `json:"display_name"`
	State       string    `json:"state,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

type runList struct {
	Runs      []Run `json:"runs"`
	TotalSize int   `json:"total_size"`
}

package dspa

// The v1beta1 types exist for clusters still running the legacy KFP API.
// Field names here are wire format; do not rename them.

// V1Parameter is a name/value pipeline parameter.
type V1Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// V1PipelineSpec selects a pipeline and its parameters.
type V1PipelineSpec struct {
	PipelineID string        `json:"pipeline_id"`
	Parameters []V1Parameter `json:"parameters"`
}

// V1ResourceKey identifies a referenced resource.
type V1ResourceKey struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// V1ResourceReference ties a run to its owning namespace.
type V1ResourceReference struct {
	Key          V1ResourceKey `json:"key"`
	Relationship string        `json:"relationship"`
}

// V1RunRequest is the v1beta1 run creation payload.
type V1RunRequest struct {
	DisplayName        string                `json:"display_name"`
	Description        string                `json:"description,omitempty"`
	PipelineSpec       V1PipelineSpec        `json:"pipeline_spec"`
	ResourceReferences []V1ResourceReference `json:"resource_references"`
}

// V1Run is a run as reported by the v1beta1 API.
type V1Run struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type v1RunEnvelope struct {
	Run             V1Run `json:"run"`
	PipelineRuntime struct {
		WorkflowManifest string `json:"workflow_manifest"`
	} `json:"pipeline_runtime"`
}

// V1Pipeline is a registered pipeline in the v1beta1 API.
type V1Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type v1PipelineList struct {
	Pipelines []V1Pipeline `json:"pipelines"`
}

// Package remediate unblocks wedged pipeline workflows. The sequence it
// automates grew out of debugging stuck runs by hand: delete the failing
// pods, run a short-lived placeholder pod that seeds the model cache
// volume, then patch the wedged workflow nodes to Succeeded so the
// orchestrator moves on.
package remediate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/petloan/dspactl/internal/core"
	"github.com/petloan/dspactl/internal/logging"
)

// ClusterAPI is the slice of cluster operations remediation needs.
type ClusterAPI interface {
	Namespace() string
	DeletePod(ctx context.Context, name string) error
	ApplyManifest(ctx context.Context, manifest string) error
	DeleteManifest(ctx context.Context, manifest string) error
	PatchWorkflowNodePhases(ctx context.Context, workflow string, nodeIDs []string, phase core.NodePhase) error
	GetWorkflow(ctx context.Context, name string) (*core.WorkflowSnapshot, error)
}

// Options selects what to do to a stuck workflow.
type Options struct {
	// Workflow is the stuck workflow's name.
	Workflow string
	// Pods to delete before anything else.
	Pods []string
	// RunID labels the placeholder pod so Argo associates it with the run.
	RunID string
	// PVCClaim is the model-cache claim the placeholder pod mounts.
	// Empty skips the volume mount.
	PVCClaim string
	// NodeIDs are the workflow status nodes to mark Succeeded.
	NodeIDs []string
	// SkipPlaceholder skips the placeholder pod step.
	SkipPlaceholder bool
	// SkipPatch skips the node phase patch step.
	SkipPatch bool
	// PlaceholderWait is how long to let the placeholder pod run before
	// cleaning it up. The pod itself sleeps 30s, so the default is 35s.
	PlaceholderWait time.Duration
	// ImagePullSecrets for the placeholder pod.
	ImagePullSecrets []string
}

// Report summarizes what a remediation pass did and where the workflow
// ended up.
type Report struct {
	DeletedPods    []string `json:"deleted_pods,omitempty"`
	PlaceholderPod string   `json:"placeholder_pod,omitempty"`
	PatchedNodes   []string `json:"patched_nodes,omitempty"`
	Phase          string   `json:"phase,omitempty"`
	Progress       string   `json:"progress,omitempty"`
	StatusUnknown  bool     `json:"status_unknown,omitempty"`
}

// Remediator runs the unstick sequence.
type Remediator struct {
	cluster ClusterAPI
	log     *logging.Logger

	sleep   func(ctx context.Context, d time.Duration) error
	nameTag func() string
}

// New creates a Remediator.
func New(cluster ClusterAPI, log *logging.Logger) *Remediator {
	return &Remediator{
		cluster: cluster,
		log:     log,
		sleep:   sleepContext,
		nameTag: shortTag,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shortTag() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Run executes the remediation sequence. Each step logs and continues on
// failure where the next step can still help; only manifest application
// errors abort, since a half-created placeholder pod is worse than none.
func (r *Remediator) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Workflow == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "workflow name is required")
	}
	if opts.PlaceholderWait <= 0 {
		opts.PlaceholderWait = 35 * time.Second
	}

	log := r.log.WithWorkflow(opts.Workflow)
	report := &Report{}

	for _, pod := range opts.Pods {
		log.Info("deleting stuck pod", "pod", pod)
		if err := r.cluster.DeletePod(ctx, pod); err != nil {
			log.Warn("pod deletion failed, continuing", "pod", pod, "error", err)
			continue
		}
		report.DeletedPods = append(report.DeletedPods, pod)
	}

	if !opts.SkipPlaceholder {
		name := fmt.Sprintf("%s-placeholder-%s", opts.Workflow, r.nameTag())
		manifest, err := placeholderManifest(name, r.cluster.Namespace(), opts)
		if err != nil {
			return report, err
		}

		log.Info("creating placeholder pod", "pod", name)
		if err := r.cluster.ApplyManifest(ctx, manifest); err != nil {
			return report, err
		}
		report.PlaceholderPod = name

		if err := r.sleep(ctx, opts.PlaceholderWait); err != nil {
			return report, core.ErrTimeout("remediation cancelled while waiting for placeholder pod")
		}

		log.Info("cleaning up placeholder pod", "pod", name)
		if err := r.cluster.DeleteManifest(ctx, manifest); err != nil {
			log.Warn("placeholder cleanup failed", "pod", name, "error", err)
		}
	}

	if !opts.SkipPatch && len(opts.NodeIDs) > 0 {
		log.Info("marking workflow nodes succeeded", "nodes", opts.NodeIDs)
		if err := r.cluster.PatchWorkflowNodePhases(ctx, opts.Workflow, opts.NodeIDs, core.NodeSucceeded); err != nil {
			log.Warn("node phase patch failed", "error", err)
		} else {
			report.PatchedNodes = opts.NodeIDs
		}
	}

	snapshot, err := r.cluster.GetWorkflow(ctx, opts.Workflow)
	if err != nil {
		// The fix may still have worked; report what we know.
		report.StatusUnknown = true
		log.Warn("could not read workflow status after remediation", "error", err)
		return report, nil
	}
	report.Phase = string(snapshot.Phase)
	report.Progress = snapshot.Progress
	return report, nil
}

// Pod manifest types, kept to the fields the placeholder pod needs.

type podManifest struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Metadata   podMetadata `yaml:"metadata"`
	Spec       podSpec     `yaml:"spec"`
}

type podMetadata struct {
	Name      string            `yaml:"name"`
	Namespace string            `yaml:"namespace"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

type podSpec struct {
	RestartPolicy      string      `yaml:"restartPolicy"`
	ImagePullSecrets   []nameRef   `yaml:"imagePullSecrets,omitempty"`
	Containers         []container `yaml:"containers"`
	Volumes            []volume    `yaml:"volumes,omitempty"`
	ServiceAccountName string      `yaml:"serviceAccountName"`
}

type nameRef struct {
	Name string `yaml:"name"`
}

type container struct {
	Name         string        `yaml:"name"`
	Image        string        `yaml:"image"`
	Command      []string      `yaml:"command"`
	Args         []string      `yaml:"args"`
	VolumeMounts []volumeMount `yaml:"volumeMounts,omitempty"`
}

type volumeMount struct {
	Name      string `yaml:"name"`
	MountPath string `yaml:"mountPath"`
}

type volume struct {
	Name string `yaml:"name"`
	PVC  pvcsrc `yaml:"persistentVolumeClaim"`
}

type pvcsrc struct {
	ClaimName string `yaml:"claimName"`
}

const placeholderScript = `echo "Seeding model cache placeholder..."
mkdir -p /models
echo "model_placeholder" > /models/placeholder.txt
echo "Placeholder complete"
sleep 30
`

// placeholderManifest renders the placeholder pod YAML. The pod carries
// the workflow labels so Argo treats it as part of the stuck run.
func placeholderManifest(name, namespace string, opts Options) (string, error) {
	labels := map[string]string{
		"workflows.argoproj.io/workflow": opts.Workflow,
	}
	if opts.RunID != "" {
		labels["pipeline/runid"] = opts.RunID
	}

	pullSecrets := make([]nameRef, 0, len(opts.ImagePullSecrets))
	for _, s := range opts.ImagePullSecrets {
		pullSecrets = append(pullSecrets, nameRef{Name: s})
	}

	main := container{
		Name:    "main",
		Image:   "registry.redhat.io/ubi8/ubi:latest",
		Command: []string{"/bin/bash"},
		Args:    []string{"-c", placeholderScript},
	}

	spec := podSpec{
		RestartPolicy:      "Never",
		ImagePullSecrets:   pullSecrets,
		Containers:         []container{main},
		ServiceAccountName: "pipeline-runner-dspa",
	}
	if opts.PVCClaim != "" {
		spec.Containers[0].VolumeMounts = []volumeMount{{Name: "model-cache", MountPath: "/model"}}
		spec.Volumes = []volume{{Name: "model-cache", PVC: pvcsrc{ClaimName: opts.PVCClaim}}}
	}

	manifest := podManifest{
		APIVersion: "v1",
		Kind:       "Pod",
		Metadata: podMetadata{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: spec,
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", core.ErrValidation(core.CodeParseFailed, "rendering placeholder pod manifest").WithCause(err)
	}
	return string(data), nil
}

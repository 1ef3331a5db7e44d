package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// WorkflowPhase is the top-level Argo workflow phase. The orchestrator owns
// this state; we only observe it.
type WorkflowPhase string

const (
	WorkflowPending   WorkflowPhase = "Pending"
	WorkflowRunning   WorkflowPhase = "Running"
	WorkflowSucceeded WorkflowPhase = "Succeeded"
	WorkflowFailed    WorkflowPhase = "Failed"
	WorkflowError     WorkflowPhase = "Error"
	WorkflowUnknown   WorkflowPhase = "Unknown"
)

// Terminal reports whether the workflow has reached a final phase.
func (p WorkflowPhase) Terminal() bool {
	return p == WorkflowSucceeded || p == WorkflowFailed || p == WorkflowError
}

// Failure reports whether the phase is a failed terminal phase.
// Failed and Error are treated identically.
func (p WorkflowPhase) Failure() bool {
	return p == WorkflowFailed || p == WorkflowError
}

// NodePhase is the per-step phase inside a workflow.
type NodePhase string

const (
	NodePending   NodePhase = "Pending"
	NodeRunning   NodePhase = "Running"
	NodeSucceeded NodePhase = "Succeeded"
	NodeFailed    NodePhase = "Failed"
	NodeError     NodePhase = "Error"
)

// NodeStatus is a point-in-time read of one workflow step.
type NodeStatus struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Phase       NodePhase `json:"phase"`
}

// WorkflowSnapshot is a point-in-time read of an Argo workflow's
// externally-owned status fields.
type WorkflowSnapshot struct {
	Name       string                `json:"name"`
	Namespace  string                `json:"namespace"`
	Phase      WorkflowPhase         `json:"phase"`
	Progress   string                `json:"progress,omitempty"`
	Message    string                `json:"message,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Nodes      map[string]NodeStatus `json:"nodes,omitempty"`
}

// Age returns the time elapsed since the workflow was created.
func (s *WorkflowSnapshot) Age(now time.Time) time.Duration {
	if s.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(s.CreatedAt)
}

// ProgressSummary aggregates node phases into progress buckets.
type ProgressSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Percent   int `json:"percent"`

	CompletedNames []string `json:"completed_names,omitempty"`
	RunningNames   []string `json:"running_names,omitempty"`
	FailedNames    []string `json:"failed_names,omitempty"`
}

// Summarize classifies the snapshot's nodes into progress buckets.
// Failed and Error nodes land in the same bucket. Percent is
// completed/total rounded down, and 0 when the snapshot has no nodes.
func Summarize(s *WorkflowSnapshot) ProgressSummary {
	sum := ProgressSummary{}
	if s == nil {
		return sum
	}
	sum.Total = len(s.Nodes)

	for _, node := range s.Nodes {
		name := node.DisplayName
		if name == "" {
			name = node.ID
		}
		switch node.Phase {
		case NodeSucceeded:
			sum.Completed++
			sum.CompletedNames = append(sum.CompletedNames, name)
		case NodeRunning:
			sum.Running++
			sum.RunningNames = append(sum.RunningNames, name)
		case NodeFailed, NodeError:
			sum.Failed++
			sum.FailedNames = append(sum.FailedNames, name)
		case NodePending:
			sum.Pending++
		}
	}

	sort.Strings(sum.CompletedNames)
	sort.Strings(sum.RunningNames)
	sort.Strings(sum.FailedNames)

	if sum.Total > 0 {
		sum.Percent = sum.Completed * 100 / sum.Total
	}
	return sum
}

// FormatDuration renders a duration as "3h 27m", the granularity the
// monitoring output uses.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// argoWorkflow mirrors the few fields we read from an Argo Workflow object,
// whether it came from `kubectl get workflow -o json` or from the
// workflow_manifest embedded in a v1beta1 run detail.
type argoWorkflow struct {
	Metadata struct {
		Name              string    `json:"name"`
		Namespace         string    `json:"namespace"`
		CreationTimestamp time.Time `json:"creationTimestamp"`
	} `json:"metadata"`
	Status struct {
		Phase      string     `json:"phase"`
		Progress   string     `json:"progress"`
		Message    string     `json:"message"`
		FinishedAt *time.Time `json:"finishedAt"`
		Nodes      map[string]struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
			Phase       string `json:"phase"`
		} `json:"nodes"`
	} `json:"status"`
}

// ParseWorkflowJSON decodes an Argo Workflow JSON document into a snapshot.
func ParseWorkflowJSON(data []byte) (*WorkflowSnapshot, error) {
	var wf argoWorkflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, ErrExecution(CodeParseFailed, "decoding workflow JSON").WithCause(err)
	}

	snap := &WorkflowSnapshot{
		Name:       wf.Metadata.Name,
		Namespace:  wf.Metadata.Namespace,
		Phase:      WorkflowPhase(wf.Status.Phase),
		Progress:   wf.Status.Progress,
		Message:    wf.Status.Message,
		CreatedAt:  wf.Metadata.CreationTimestamp,
		FinishedAt: wf.Status.FinishedAt,
	}
	if snap.Phase == "" {
		snap.Phase = WorkflowUnknown
	}
	if len(wf.Status.Nodes) > 0 {
		snap.Nodes = make(map[string]NodeStatus, len(wf.Status.Nodes))
		for id, node := range wf.Status.Nodes {
			nodeID := node.ID
			if nodeID == "" {
				nodeID = id
			}
			snap.Nodes[id] = NodeStatus{
				ID:          nodeID,
				DisplayName: node.DisplayName,
				Phase:       NodePhase(node.Phase),
			}
		}
	}
	return snap, nil
}

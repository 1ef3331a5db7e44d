// Package cluster wraps the oc/kubectl CLI for the handful of cluster
// reads and mutations the tool needs. Everything goes through the binary
// so the tool works with whatever login state the operator already has.
package cluster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/petloan/dspactl/internal/core"
	"github.com/petloan/dspactl/internal/logging"
)

// Client executes cluster commands against a fixed namespace.
type Client struct {
	binary    string
	namespace string
	timeout   time.Duration
	log       *logging.Logger
}

// New creates a cluster client. When binary is empty, oc is preferred and
// kubectl is the fallback; an error is returned when neither is on PATH.
// A nil logger silences the per-command debug trace.
func New(binary, namespace string, timeout time.Duration, log *logging.Logger) (*Client, error) {
	if binary == "" {
		for _, candidate := range []string{"oc", "kubectl"} {
			if _, err := exec.LookPath(candidate); err == nil {
				binary = candidate
				break
			}
		}
		if binary == "" {
			return nil, core.ErrCluster(core.CodeNoBinary, "neither oc nor kubectl found on PATH")
		}
	} else if !strings.Contains(binary, "/") {
		if _, err := exec.LookPath(binary); err != nil {
			return nil, core.ErrCluster(core.CodeNoBinary, fmt.Sprintf("%s not found on PATH", binary))
		}
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Client{
		binary:    binary,
		namespace: namespace,
		timeout:   timeout,
		log:       log,
	}, nil
}

// Binary returns the resolved binary name.
func (c *Client) Binary() string {
	return c.binary
}

// Namespace returns the namespace the client operates in.
func (c *Client) Namespace() string {
	return c.namespace
}

// run executes a cluster command.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	return c.runInput(ctx, "", args...)
}

// runInput executes a cluster command with data on stdin.
func (c *Client) runInput(ctx context.Context, stdin string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("running cluster command", "binary", c.binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrTimeout(fmt.Sprintf("%s command timed out", c.binary))
		}
		return "", core.ErrCluster(core.CodeCommandFailed,
			fmt.Sprintf("%s %s: %s", c.binary, strings.Join(args, " "), strings.TrimSpace(stderr.String()))).WithCause(err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Token returns the logged-in user's token via `whoami --show-token`.
func (c *Client) Token(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "whoami", "--show-token")
	if err != nil {
		return "", core.ErrAuth("not logged in to the cluster").WithCause(err)
	}
	return out, nil
}

// RouteHost returns the host of a route in the client's namespace.
func (c *Client) RouteHost(ctx context.Context, name string) (string, error) {
	out, err := c.run(ctx, "get", "route", name,
		"-n", c.namespace,
		"-o", "jsonpath={.spec.host}")
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", core.ErrCluster(core.CodeRouteNotFound,
			fmt.Sprintf("route %s has no host in namespace %s", name, c.namespace))
	}
	return out, nil
}

// GetWorkflow fetches a workflow and parses it into a snapshot.
func (c *Client) GetWorkflow(ctx context.Context, name string) (*core.WorkflowSnapshot, error) {
	out, err := c.run(ctx, "get", "workflow", name,
		"-n", c.namespace,
		"-o", "json")
	if err != nil {
		return nil, core.ErrCluster(core.CodeWorkflowNotFound,
			fmt.Sprintf("workflow %s not found in namespace %s", name, c.namespace)).WithCause(err)
	}

	snapshot, err := core.ParseWorkflowJSON([]byte(out))
	if err != nil {
		return nil, err
	}
	if snapshot.Namespace == "" {
		snapshot.Namespace = c.namespace
	}
	return snapshot, nil
}

// LatestWorkflowName returns the most recently created workflow.
func (c *Client) LatestWorkflowName(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "get", "workflows",
		"-n", c.namespace,
		"--sort-by=.metadata.creationTimestamp",
		"-o", "jsonpath={.items[-1:].metadata.name}")
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", core.ErrCluster(core.CodeWorkflowNotFound,
			fmt.Sprintf("no workflows found in namespace %s", c.namespace))
	}
	return out, nil
}

// WorkflowNameByRunID resolves the workflow created for a pipeline run.
// Newly submitted runs take a few seconds to materialize a workflow, so
// callers should retry on a not-found result.
func (c *Client) WorkflowNameByRunID(ctx context.Context, runID string) (string, error) {
	out, err := c.run(ctx, "get", "workflows",
		"-n", c.namespace,
		"-l", "pipeline/runid="+runID,
		"-o", "jsonpath={.items[0].metadata.name}")
	if err != nil || out == "" {
		return "", core.ErrCluster(core.CodeWorkflowNotFound,
			fmt.Sprintf("no workflow for run %s yet", runID))
	}
	return out, nil
}

// Pod is a minimal view of a pod in the namespace.
type Pod struct {
	Name  string
	Phase string
}

// WorkflowPods lists the pods belonging to a workflow.
func (c *Client) WorkflowPods(ctx context.Context, workflow string) ([]Pod, error) {
	out, err := c.run(ctx, "get", "pods",
		"-n", c.namespace,
		"--selector=workflows.argoproj.io/workflow="+workflow,
		"-o", `jsonpath={range .items[*]}{.metadata.name}{"\t"}{.status.phase}{"\n"}{end}`)
	if err != nil {
		return nil, err
	}

	pods := make([]Pod, 0)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) >= 2 && fields[0] != "" {
			pods = append(pods, Pod{Name: fields[0], Phase: fields[1]})
		}
	}
	return pods, nil
}

// DeletePod deletes a pod, tolerating pods that are already gone.
func (c *Client) DeletePod(ctx context.Context, name string) error {
	_, err := c.run(ctx, "delete", "pod", name,
		"-n", c.namespace,
		"--ignore-not-found=true")
	return err
}

// ApplyManifest applies a YAML manifest from memory.
func (c *Client) ApplyManifest(ctx context.Context, manifest string) error {
	_, err := c.runInput(ctx, manifest, "apply", "-n", c.namespace, "-f", "-")
	return err
}

// DeleteManifest deletes the resources in a YAML manifest.
func (c *Client) DeleteManifest(ctx context.Context, manifest string) error {
	_, err := c.runInput(ctx, manifest, "delete", "-n", c.namespace, "--ignore-not-found=true", "-f", "-")
	return err
}

// PatchWorkflowNodePhases sets the phase of the given workflow status nodes
// with a single JSON patch. Argo does not reconcile node phases backwards,
// so this is how a wedged node gets marked done by hand.
func (c *Client) PatchWorkflowNodePhases(ctx context.Context, workflow string, nodeIDs []string, phase core.NodePhase) error {
	if len(nodeIDs) == 0 {
		return nil
	}

	ops := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		ops = append(ops, fmt.Sprintf(`{"op":"replace","path":"/status/nodes/%s/phase","value":"%s"}`,
			escapeJSONPointer(id), phase))
	}

	_, err := c.run(ctx, "patch", "workflow", workflow,
		"-n", c.namespace,
		"--type=json",
		"-p", "["+strings.Join(ops, ",")+"]")
	return err
}

// escapeJSONPointer escapes a JSON patch path segment per RFC 6901.
func escapeJSONPointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// CountPyTorchJobs counts PyTorchJob resources in the namespace. A zero
// count with no error also covers clusters without the training operator.
func (c *Client) CountPyTorchJobs(ctx context.Context) (int, error) {
	out, err := c.run(ctx, "get", "pytorchjobs",
		"-n", c.namespace,
		"-o", "jsonpath={.items[*].metadata.name}")
	if err != nil {
		return 0, nil
	}
	if out == "" {
		return 0, nil
	}
	return len(strings.Fields(out)), nil
}

// ServerVersion returns the cluster's reported version, for diagnostics.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "version", "-o", "jsonpath={.serverVersion.gitVersion}")
	if err != nil {
		return "", err
	}
	return out, nil
}

// Whoami returns the logged-in username.
func (c *Client) Whoami(ctx context.Context) (string, error) {
	return c.run(ctx, "whoami")
}

// NodeGPUCapacity sums the nvidia.com/gpu capacity across cluster nodes.
func (c *Client) NodeGPUCapacity(ctx context.Context) (int, error) {
	out, err := c.run(ctx, "get", "nodes",
		"-o", `jsonpath={range .items[*]}{.status.capacity.nvidia\.com/gpu}{"\n"}{end}`)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		total += n
	}
	return total, nil
}

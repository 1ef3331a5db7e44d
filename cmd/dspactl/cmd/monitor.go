package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/petloan/dspactl/internal/adapters/cluster"
	"github.com/petloan/dspactl/internal/config"
	"github.com/petloan/dspactl/internal/core"
	"github.com/petloan/dspactl/internal/logging"
	"github.com/petloan/dspactl/internal/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [workflow]",
	Short: "Watch a pipeline workflow until it finishes",
	Long: `Poll a workflow's status and print progress updates.

With no arguments the most recently submitted run from local history is
monitored, falling back to the newest workflow in the namespace. Exits 0
when the workflow succeeds, 1 when it fails, and 2 when the monitoring
window elapses first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

var monitorRunID string

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorRunID, "run", "", "resolve the workflow from a pipeline run ID")
}

// workflowSource adapts the cluster client to the monitor's source.
type workflowSource struct {
	cl   *cluster.Client
	name string
}

func (s *workflowSource) Snapshot(ctx context.Context) (*core.WorkflowSnapshot, error) {
	return s.cl.GetWorkflow(ctx, s.name)
}

// trainingProbe reports how many PyTorchJobs are active in the namespace.
type trainingProbe struct {
	cl *cluster.Client
}

func (p *trainingProbe) TrainingJobs(ctx context.Context) (int, error) {
	return p.cl.CountPyTorchJobs(ctx)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	cl, err := newCluster(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	workflow, err := resolveWorkflow(ctx, cfg, cl, args, log)
	if err != nil {
		return err
	}

	mon := monitor.New(
		&workflowSource{cl: cl, name: workflow},
		monitor.Config{
			Interval:       cfg.Monitor.Interval,
			MaxDuration:    cfg.Monitor.MaxDuration,
			HeartbeatEvery: cfg.Monitor.HeartbeatEvery,
		},
		log,
		monitor.WithActivityProbe(&trainingProbe{cl: cl}),
		monitor.WithRenderer(newMonitorRenderer()),
	)
	_, err = mon.Run(ctx, workflow)
	return err
}

// resolveWorkflow picks the workflow to watch: explicit argument, run ID
// lookup, latest history record, then newest workflow in the namespace.
func resolveWorkflow(ctx context.Context, cfg *config.Config, cl *cluster.Client, args []string, log *logging.Logger) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if monitorRunID != "" {
		return cl.WorkflowNameByRunID(ctx, monitorRunID)
	}

	if record, histErr := newHistory(cfg).Latest(); histErr == nil {
		if record.Workflow != "" {
			log.Info("monitoring last submitted run", "run_id", record.RunID, "workflow", record.Workflow)
			return record.Workflow, nil
		}
		if name, wfErr := cl.WorkflowNameByRunID(ctx, record.RunID); wfErr == nil {
			return name, nil
		}
	}

	log.Info("no submission history, monitoring newest workflow in namespace")
	return cl.LatestWorkflowName(ctx)
}

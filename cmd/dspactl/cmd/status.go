package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petloan/dspactl/internal/adapters/cluster"
	"github.com/petloan/dspactl/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status [workflow]",
	Short: "Show a one-shot workflow status",
	Long:  "Display the current phase, step progress, and pods of a workflow without watching it.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().StringVar(&monitorRunID, "run", "", "resolve the workflow from a pipeline run ID")
}

type statusReport struct {
	Workflow string               `json:"workflow"`
	Phase    string               `json:"phase"`
	Age      string               `json:"age"`
	Message  string               `json:"message,omitempty"`
	Progress core.ProgressSummary `json:"progress"`
	Pods     []cluster.Pod        `json:"pods,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	var (
		snapshot *core.WorkflowSnapshot
		pods     []cluster.Pod
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var snapErr error
		snapshot, snapErr = cl.GetWorkflow(gctx, workflow)
		return snapErr
	})
	g.Go(func() error {
		// Pod listing is best effort; completed workflows have none.
		pods, _ = cl.WorkflowPods(gctx, workflow)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	summary := core.Summarize(snapshot)
	report := statusReport{
		Workflow: snapshot.Name,
		Phase:    string(snapshot.Phase),
		Age:      core.FormatDuration(snapshot.Age(time.Now())),
		Message:  snapshot.Message,
		Progress: summary,
		Pods:     pods,
	}

	if statusJSON {
		return outputJSON(report)
	}

	fmt.Printf("Workflow: %s\n", report.Workflow)
	fmt.Printf("Phase:    %s\n", report.Phase)
	fmt.Printf("Age:      %s\n", report.Age)
	if report.Message != "" {
		fmt.Printf("Message:  %s\n", report.Message)
	}
	fmt.Printf("Progress: %d/%d steps (%d%%)\n", summary.Completed, summary.Total, summary.Percent)
	if summary.Failed > 0 {
		fmt.Printf("Failed steps: %s\n", strings.Join(summary.FailedNames, ", "))
	}
	if summary.Running > 0 {
		fmt.Printf("Running steps: %s\n", strings.Join(summary.RunningNames, ", "))
	}

	if len(pods) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POD\tPHASE")
		fmt.Fprintln(w, "---\t-----")
		for _, pod := range pods {
			fmt.Fprintf(w, "%s\t%s\n", pod.Name, pod.Phase)
		}
		w.Flush()
	}

	return nil
}

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petloan/dspactl/internal/core"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "Inspect pipelines registered with the DSPA",
}

var pipelinesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered pipelines",
	RunE:  runPipelinesList,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent pipeline runs",
	RunE:  runRunsList,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one pipeline run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

var (
	pipelinesJSON bool
	pipelinesV1   bool
	runsJSON      bool
	runsPageSize  int
	runsGetJSON   bool
	runsGetV1     bool
)

func init() {
	rootCmd.AddCommand(pipelinesCmd)
	pipelinesCmd.AddCommand(pipelinesListCmd)
	pipelinesListCmd.Flags().BoolVar(&pipelinesJSON, "json", false, "Output as JSON")
	pipelinesListCmd.Flags().BoolVar(&pipelinesV1, "v1", false, "use the legacy v1beta1 API")

	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "Output as JSON")
	runsListCmd.Flags().IntVar(&runsPageSize, "limit", 20, "maximum runs to list")
	runsCmd.AddCommand(runsGetCmd)
	runsGetCmd.Flags().BoolVar(&runsGetJSON, "json", false, "Output as JSON")
	runsGetCmd.Flags().BoolVar(&runsGetV1, "v1", false, "use the legacy v1beta1 API")
}

func runPipelinesList(cmd *cobra.Command, _ []string) error {
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
	baseURL, err := dspaBaseURL(ctx, cfg, cl, false, log)
	if err != nil {
		return err
	}
	client, err := newDSPAClient(ctx, cfg, cl, baseURL)
	if err != nil {
		return err
	}

	if pipelinesV1 {
		pipelines, err := client.ListPipelinesV1(ctx)
		if err != nil {
			return err
		}
		if pipelinesJSON {
			return outputJSON(pipelines)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, p := range pipelines {
			fmt.Fprintf(w, "%s\t%s\n", p.ID, p.Name)
		}
		return w.Flush()
	}

	pipelines, err := client.ListPipelines(ctx)
	if err != nil {
		return err
	}
	if pipelinesJSON {
		return outputJSON(pipelines)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, p := range pipelines {
		created := "-"
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.DisplayName, created)
	}
	return w.Flush()
}

func runRunsGet(cmd *cobra.Command, args []string) error {
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
	baseURL, err := dspaBaseURL(ctx, cfg, cl, false, log)
	if err != nil {
		return err
	}
	client, err := newDSPAClient(ctx, cfg, cl, baseURL)
	if err != nil {
		return err
	}

	if runsGetV1 {
		run, snapshot, err := client.GetRunV1(ctx, args[0])
		if err != nil {
			return err
		}
		if runsGetJSON {
			return outputJSON(map[string]any{"run": run, "workflow": snapshot})
		}
		fmt.Printf("Run ID: %s\n", run.ID)
		fmt.Printf("Name:   %s\n", run.Name)
		fmt.Printf("Status: %s\n", run.Status)
		if snapshot != nil {
			summary := core.Summarize(snapshot)
			fmt.Printf("Workflow: %s (%s, %d/%d steps)\n",
				snapshot.Name, snapshot.Phase, summary.Completed, summary.Total)
		}
		return nil
	}

	run, err := client.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	if runsGetJSON {
		return outputJSON(run)
	}
	fmt.Printf("Run ID: %s\n", run.ID)
	fmt.Printf("Name:   %s\n", run.DisplayName)
	fmt.Printf("State:  %s\n", run.State)
	if !run.CreatedAt.IsZero() {
		fmt.Printf("Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	}
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}
	return nil
}

func runRunsList(cmd *cobra.Command, _ []string) error {
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
	baseURL, err := dspaBaseURL(ctx, cfg, cl, false, log)
	if err != nil {
		return err
	}
	client, err := newDSPAClient(ctx, cfg, cl, baseURL)
	if err != nil {
		return err
	}

	runs, err := client.ListRuns(ctx, runsPageSize)
	if err != nil {
		return err
	}
	if runsJSON {
		return outputJSON(runs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tNAME\tSTATE\tCREATED")
	for _, r := range runs {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.DisplayName, r.State, created)
	}
	return w.Flush()
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petloan/dspactl/internal/adapters/cluster"
	"github.com/petloan/dspactl/internal/adapters/dspa"
	"github.com/petloan/dspactl/internal/adapters/state"
	"github.com/petloan/dspactl/internal/config"
	"github.com/petloan/dspactl/internal/logging"
	"github.com/petloan/dspactl/internal/monitor"
	"github.com/petloan/dspactl/internal/profiles"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an InstructLab pipeline run",
	Long: `Submit a pipeline run using one of the curated parameter profiles.

Profiles target specific failure modes seen in production:
  default        full production configuration (4 workers, sdg scale 30)
  cuda-fixed     conservative settings after CUDA out-of-memory failures
  storage-fixed  RWO storage configuration (gp3, simple SDG pipeline)
  complete       balanced two-phase training tuned to actually finish
  production     legacy v1beta1 API, gp3 storage
  nfs-storage    legacy v1beta1 API, nfs-manual storage`,
	RunE: runSubmit,
}

var (
	submitProfile   string
	submitRoute     bool
	submitMonitor   bool
	submitRepoURL   string
	submitBaseModel string
	submitModelName string
	submitDryRun    bool
)

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitProfile, "profile", "default", "parameter profile to submit")
	submitCmd.Flags().BoolVar(&submitRoute, "route", false, "use the OAuth route instead of port-forward")
	submitCmd.Flags().BoolVar(&submitMonitor, "monitor", false, "watch the run after submitting")
	submitCmd.Flags().StringVar(&submitRepoURL, "repo-url", "", "override taxonomy repository URL")
	submitCmd.Flags().StringVar(&submitBaseModel, "base-model", "", "override base model")
	submitCmd.Flags().StringVar(&submitModelName, "output-model-name", "", "override output model name")
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "print the run payload without submitting")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	profile, err := profiles.Get(submitProfile)
	if err != nil {
		return err
	}
	overrides := profiles.Overrides{
		RepoURL:         submitRepoURL,
		BaseModel:       submitBaseModel,
		OutputModelName: submitModelName,
	}

	if submitDryRun {
		return printDryRun(profile, overrides, cfg.Namespace)
	}

	cl, err := newCluster(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	baseURL, err := dspaBaseURL(ctx, cfg, cl, submitRoute, log)
	if err != nil {
		return err
	}
	client, err := newDSPAClient(ctx, cfg, cl, baseURL)
	if err != nil {
		return err
	}

	var record state.Record
	switch profile.API {
	case profiles.APIV1:
		record, err = submitV1(ctx, client, cfg, profile, overrides, log)
	default:
		record, err = submitV2(ctx, client, cfg, profile, overrides, log)
	}
	if err != nil {
		return err
	}

	history := newHistory(cfg)
	if histErr := history.Append(record); histErr != nil {
		log.Warn("could not record submission in history", "error", histErr)
	}

	fmt.Printf("Run submitted\n")
	fmt.Printf("  Run ID:   %s\n", record.RunID)
	fmt.Printf("  Name:     %s\n", record.RunName)
	fmt.Printf("  Profile:  %s\n", record.Profile)
	fmt.Printf("\nMonitor with:\n")
	fmt.Printf("  dspactl monitor --run %s\n", record.RunID)
	fmt.Printf("  %s get pods -n %s | grep instructlab\n", cl.Binary(), cfg.Namespace)

	if !submitMonitor {
		return nil
	}
	return monitorAfterSubmit(ctx, cfg, cl, history, record, log)
}

func submitV2(ctx context.Context, client *dspa.Client, cfg *config.Config, profile *profiles.Profile, overrides profiles.Overrides, log *logging.Logger) (state.Record, error) {
	log.Info("looking up pipeline", "pipeline", cfg.DSPA.PipelineName)
	pipeline, err := client.FindPipeline(ctx, cfg.DSPA.PipelineName)
	if err != nil {
		return state.Record{}, err
	}
	version, err := client.LatestVersion(ctx, pipeline.ID)
	if err != nil {
		return state.Record{}, err
	}
	log.Info("found pipeline", "pipeline_id", pipeline.ID, "version_id", version.ID)

	run, err := client.CreateRun(ctx, &dspa.RunRequest{
		DisplayName: profile.RunDisplayName(time.Now()),
		Description: profile.Description,
		VersionReference: dspa.VersionReference{
			PipelineID:        pipeline.ID,
			PipelineVersionID: version.ID,
		},
		RuntimeConfig: dspa.RuntimeConfig{Parameters: profile.Apply(overrides)},
	})
	if err != nil {
		return state.Record{}, err
	}

	return state.Record{
		RunID:     run.ID,
		RunName:   run.DisplayName,
		Profile:   profile.Name,
		Namespace: cfg.Namespace,
		API:       string(profiles.APIV2),
	}, nil
}

func submitV1(ctx context.Context, client *dspa.Client, cfg *config.Config, profile *profiles.Profile, overrides profiles.Overrides, log *logging.Logger) (state.Record, error) {
	log.Info("looking up pipeline on legacy API", "pipeline", cfg.DSPA.PipelineName)
	pipeline, err := client.FindPipelineV1(ctx, cfg.DSPA.PipelineName)
	if err != nil {
		return state.Record{}, err
	}

	run, err := client.CreateRunV1(ctx, &dspa.V1RunRequest{
		DisplayName: profile.RunDisplayName(time.Now()),
		Description: profile.Description,
		PipelineSpec: dspa.V1PipelineSpec{
			PipelineID: pipeline.ID,
			Parameters: profile.ApplyV1(overrides),
		},
		ResourceReferences: []dspa.V1ResourceReference{{
			Key:          dspa.V1ResourceKey{Type: "NAMESPACE", ID: cfg.Namespace},
			Relationship: "OWNER",
		}},
	})
	if err != nil {
		return state.Record{}, err
	}

	return state.Record{
		RunID:     run.ID,
		RunName:   run.Name,
		Profile:   profile.Name,
		Namespace: cfg.Namespace,
		API:       string(profiles.APIV1),
	}, nil
}

// printDryRun shows what would be submitted.
func printDryRun(profile *profiles.Profile, overrides profiles.Overrides, namespace string) error {
	out := map[string]interface{}{
		"profile":      profile.Name,
		"api":          string(profile.API),
		"display_name": profile.RunDisplayName(time.Now()),
		"namespace":    namespace,
	}
	if profile.API == profiles.APIV1 {
		out["parameters"] = profile.ApplyV1(overrides)
	} else {
		out["parameters"] = profile.Apply(overrides)
	}
	return outputJSON(out)
}

// monitorAfterSubmit waits for the run's workflow to materialize, then
// watches it with the tighter post-submit polling settings.
func monitorAfterSubmit(ctx context.Context, cfg *config.Config, cl *cluster.Client, history *state.History, record state.Record, log *logging.Logger) error {
	workflow, err := waitForWorkflow(ctx, cl, record.RunID, log)
	if err != nil {
		return err
	}
	if histErr := history.SetWorkflow(record.RunID, workflow); histErr != nil {
		log.Warn("could not update history with workflow name", "error", histErr)
	}

	mon := monitor.New(
		&workflowSource{cl: cl, name: workflow},
		monitor.Config{
			Interval:       cfg.Monitor.SubmitInterval,
			MaxDuration:    cfg.Monitor.SubmitMaxDuration,
			HeartbeatEvery: cfg.Monitor.HeartbeatEvery,
		},
		log,
		monitor.WithActivityProbe(&trainingProbe{cl: cl}),
		monitor.WithRenderer(newMonitorRenderer()),
	)
	_, err = mon.Run(ctx, workflow)
	return err
}

// waitForWorkflow polls until the orchestrator creates a workflow for the
// run. New runs usually materialize within a minute.
func waitForWorkflow(ctx context.Context, cl *cluster.Client, runID string, log *logging.Logger) (string, error) {
	log.Info("waiting for workflow to materialize", "run_id", runID)

	var lastErr error
	for attempt := 0; attempt < 12; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(10 * time.Second):
			}
		}
		name, err := cl.WorkflowNameByRunID(ctx, runID)
		if err == nil {
			log.Info("workflow created", "workflow", name)
			return name, nil
		}
		lastErr = err
	}
	return "", lastErr
}

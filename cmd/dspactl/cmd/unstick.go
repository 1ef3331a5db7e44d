package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petloan/dspactl/internal/remediate"
)

var unstickCmd = &cobra.Command{
	Use:   "unstick <workflow>",
	Short: "Unblock a wedged pipeline workflow",
	Long: `Apply the manual remediation sequence to a stuck workflow:

  1. Delete the stuck pods (--pod, repeatable).
  2. Run a short-lived placeholder pod that seeds the model cache
     volume (--pvc), then clean it up.
  3. Patch the wedged workflow status nodes to Succeeded (--node,
     repeatable) so the orchestrator moves on.

Steps 2 and 3 can be skipped individually. This mutates workflow status
behind the orchestrator's back; use it on workflows that are already
beyond saving by normal means.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnstick,
}

var (
	unstickPods        []string
	unstickNodes       []string
	unstickRunID       string
	unstickPVC         string
	unstickSkipPod     bool
	unstickSkipPatch   bool
	unstickWait        time.Duration
	unstickPullSecrets []string
	unstickForce       bool
	unstickJSON        bool
)

func init() {
	rootCmd.AddCommand(unstickCmd)
	unstickCmd.Flags().StringArrayVar(&unstickPods, "pod", nil, "stuck pod to delete (repeatable)")
	unstickCmd.Flags().StringArrayVar(&unstickNodes, "node", nil, "workflow node ID to mark Succeeded (repeatable)")
	unstickCmd.Flags().StringVar(&unstickRunID, "run-id", "", "pipeline run ID to label the placeholder pod with")
	unstickCmd.Flags().StringVar(&unstickPVC, "pvc", "", "model-cache PVC claim the placeholder pod mounts")
	unstickCmd.Flags().BoolVar(&unstickSkipPod, "skip-placeholder", false, "skip the placeholder pod step")
	unstickCmd.Flags().BoolVar(&unstickSkipPatch, "skip-patch", false, "skip the node phase patch step")
	unstickCmd.Flags().DurationVar(&unstickWait, "wait", 35*time.Second, "how long to let the placeholder pod run")
	unstickCmd.Flags().StringArrayVar(&unstickPullSecrets, "pull-secret", []string{"ilab-pull-secret"},
		"image pull secret for the placeholder pod (repeatable)")
	unstickCmd.Flags().BoolVarP(&unstickForce, "force", "f", false, "skip the confirmation prompt")
	unstickCmd.Flags().BoolVar(&unstickJSON, "json", false, "Output the report as JSON")
}

func runUnstick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	cl, err := newCluster(cfg, log)
	if err != nil {
		return err
	}

	workflow := args[0]
	fmt.Printf("Workflow:  %s\n", workflow)
	fmt.Printf("Namespace: %s\n", cfg.Namespace)
	if len(unstickPods) > 0 {
		fmt.Printf("Delete pods: %s\n", strings.Join(unstickPods, ", "))
	}
	if !unstickSkipPod {
		fmt.Printf("Placeholder pod: yes (pvc: %s)\n", orDash(unstickPVC))
	}
	if !unstickSkipPatch && len(unstickNodes) > 0 {
		fmt.Printf("Patch nodes to Succeeded: %s\n", strings.Join(unstickNodes, ", "))
	}

	if !confirm("\nProceed with remediation?", unstickForce) {
		fmt.Println("Remediation cancelled")
		return nil
	}

	report, err := remediate.New(cl, log).Run(cmd.Context(), remediate.Options{
		Workflow:         workflow,
		Pods:             unstickPods,
		RunID:            unstickRunID,
		PVCClaim:         unstickPVC,
		NodeIDs:          unstickNodes,
		SkipPlaceholder:  unstickSkipPod,
		SkipPatch:        unstickSkipPatch,
		PlaceholderWait:  unstickWait,
		ImagePullSecrets: unstickPullSecrets,
	})
	if err != nil {
		return err
	}

	if unstickJSON {
		return outputJSON(report)
	}

	fmt.Println("\nRemediation completed")
	if len(report.DeletedPods) > 0 {
		fmt.Printf("  Deleted pods: %s\n", strings.Join(report.DeletedPods, ", "))
	}
	if report.PlaceholderPod != "" {
		fmt.Printf("  Placeholder pod: %s\n", report.PlaceholderPod)
	}
	if len(report.PatchedNodes) > 0 {
		fmt.Printf("  Patched nodes: %s\n", strings.Join(report.PatchedNodes, ", "))
	}
	if report.StatusUnknown {
		fmt.Println("  Workflow status could not be read afterwards")
	} else {
		fmt.Printf("  Workflow phase: %s", report.Phase)
		if report.Progress != "" {
			fmt.Printf(" (%s)", report.Progress)
		}
		fmt.Println()
	}
	fmt.Printf("\nWatch it with: dspactl monitor %s\n", workflow)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/petloan/dspactl/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check cluster access and pipeline prerequisites",
	Long:  "Verify the CLI tooling, cluster login, DSPA route and GPU capacity this tool depends on.",
	RunE:  runDoctor,
}

var doctorSystem bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorSystem, "system", false, "also report local machine health")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	checks := []struct {
		name     string
		command  string
		args     []string
		required bool
	}{
		{"oc", "oc", []string{"version", "--client"}, false},
		{"kubectl", "kubectl", []string{"version", "--client"}, false},
	}

	fmt.Println("Checking tools...")
	fmt.Println()

	anyCLI := false
	for _, check := range checks {
		ok := checkCommand(check.command, check.args)
		icon := "○"
		if ok {
			icon = "✓"
			anyCLI = true
		}
		fmt.Printf("  %s %s\n", icon, check.name)
	}
	if !anyCLI {
		fmt.Println()
		fmt.Println("Neither oc nor kubectl found on PATH")
		return fmt.Errorf("dependency check failed")
	}

	fmt.Println()
	fmt.Println("Checking configuration...")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ config: %v\n", err)
		return fmt.Errorf("configuration check failed")
	}
	fmt.Printf("  ✓ config (namespace %s)\n", cfg.Namespace)
	log := newLogger(cfg)

	fmt.Println()
	fmt.Println("Checking cluster access...")
	fmt.Println()

	cl, err := newCluster(cfg, log)
	if err != nil {
		fmt.Printf("  ✗ cluster CLI: %v\n", err)
		return fmt.Errorf("cluster check failed")
	}

	ok := true

	if user, err := cl.Whoami(ctx); err != nil {
		fmt.Printf("  ✗ login: %v\n", err)
		fmt.Println("    Run 'oc login' and try again")
		ok = false
	} else {
		fmt.Printf("  ✓ logged in as %s\n", user)
	}

	if version, err := cl.ServerVersion(ctx); err != nil {
		fmt.Printf("  ○ server version unavailable: %v\n", err)
	} else {
		fmt.Printf("  ✓ server %s\n", version)
	}

	if cfg.DSPA.BaseURL != "" {
		fmt.Printf("  ✓ DSPA base URL overridden (%s)\n", cfg.DSPA.BaseURL)
	} else if host, err := cl.RouteHost(ctx, cfg.DSPA.RouteName); err != nil {
		fmt.Printf("  ○ DSPA route %s not found; port-forward mode needed\n", cfg.DSPA.RouteName)
	} else {
		fmt.Printf("  ✓ DSPA route %s\n", host)
	}

	if gpus, err := cl.NodeGPUCapacity(ctx); err != nil {
		fmt.Printf("  ○ GPU capacity unavailable: %v\n", err)
	} else if gpus == 0 {
		fmt.Println("  ○ no GPU capacity visible; training phases will not schedule")
	} else {
		fmt.Printf("  ✓ %d GPUs available\n", gpus)
	}

	if jobs, err := cl.CountPyTorchJobs(ctx); err == nil && jobs > 0 {
		fmt.Printf("  ✓ %d PyTorchJobs currently running\n", jobs)
	}

	if doctorSystem {
		fmt.Println()
		fmt.Println("Checking local machine...")
		fmt.Println()
		printSystemReport(diagnostics.CollectSystem(ctx))
	}

	fmt.Println()
	if !ok {
		fmt.Println("Some checks failed")
		return fmt.Errorf("cluster check failed")
	}
	fmt.Println("All checks passed")
	return nil
}

func checkCommand(name string, args []string) bool {
	return exec.Command(name, args...).Run() == nil
}

func printSystemReport(report diagnostics.SystemReport) {
	if report.CPUModel != "" {
		fmt.Printf("  cpu:  %s (%d threads)\n", report.CPUModel, report.CPUThreads)
	}
	if report.MemTotalMB > 0 {
		fmt.Printf("  mem:  %.0f/%.0f MB (%.0f%%)\n", report.MemUsedMB, report.MemTotalMB, report.MemPercent)
	}
	if report.DiskTotalGB > 0 {
		fmt.Printf("  disk: %.0f/%.0f GB (%.0f%%)\n", report.DiskUsedGB, report.DiskTotalGB, report.DiskPercent)
	}
	if report.LoadAvg1 > 0 {
		fmt.Printf("  load: %.2f\n", report.LoadAvg1)
	}
	for _, gpu := range report.GPUs {
		if gpu.HasMetrics {
			fmt.Printf("  gpu:  %s (%.0f%% util, %.0f/%.0f MB)\n",
				gpu.Name, gpu.UtilPercent, gpu.MemUsedMB, gpu.MemTotalMB)
		} else {
			fmt.Printf("  gpu:  %s\n", gpu.Name)
		}
	}
}

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petloan/dspactl/internal/adapters/storage"
	"github.com/petloan/dspactl/internal/config"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [run-id]",
	Short: "List the artifacts a pipeline run wrote to the object store",
	Long: `List the objects a pipeline run produced in the DSPA artifact bucket.

Without a run ID the most recent submission from local history is used.
Requires storage credentials in the config file (storage.endpoint,
storage.access_key, storage.secret_key).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runArtifacts,
}

var (
	artifactsJSON    bool
	artifactsPresign string
	artifactsTTL     time.Duration
)

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.Flags().BoolVar(&artifactsJSON, "json", false, "Output artifacts as JSON")
	artifactsCmd.Flags().StringVar(&artifactsPresign, "presign", "", "print a temporary download URL for this object key instead of listing")
	artifactsCmd.Flags().DurationVar(&artifactsTTL, "ttl", 10*time.Minute, "lifetime of the presigned URL")
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.New(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Prefix:    cfg.Storage.Prefix,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return err
	}

	if artifactsPresign != "" {
		url, err := store.PresignGet(cmd.Context(), artifactsPresign, artifactsTTL)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	}

	runID, err := resolveRunID(cfg, args)
	if err != nil {
		return err
	}

	artifacts, err := store.ListRunArtifacts(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if artifactsJSON {
		return outputJSON(artifacts)
	}

	if len(artifacts) == 0 {
		fmt.Printf("No artifacts found for run %s\n", runID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
	for _, a := range artifacts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Key, formatBytes(a.Size), a.LastModified.Format(time.RFC3339))
	}
	return w.Flush()
}

// resolveRunID takes the run ID from args, else the latest history record.
func resolveRunID(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := newHistory(cfg).Latest()
	if err != nil {
		return "", err
	}
	return latest.RunID, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

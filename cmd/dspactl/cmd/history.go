package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show locally recorded pipeline submissions",
	Long:  "List the pipeline runs this tool has submitted, newest first.",
	RunE:  runHistory,
}

var historyJSON bool

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output history as JSON")
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	records, err := newHistory(cfg).List()
	if err != nil {
		return err
	}

	if historyJSON {
		return outputJSON(records)
	}

	if len(records) == 0 {
		fmt.Println("No submissions recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tNAME\tPROFILE\tAPI\tWORKFLOW\tSUBMITTED")
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		workflow := r.Workflow
		if workflow == "" {
			workflow = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.RunName, r.Profile, r.API, workflow,
			r.SubmittedAt.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

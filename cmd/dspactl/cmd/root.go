package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	noColor    bool
	quiet      bool
	namespace  string
	kubeBinary string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "dspactl",
	Short: "Maintenance tooling for InstructLab pipeline runs on OpenShift",
	Long: `dspactl submits, monitors, and unsticks InstructLab fine-tuning
pipeline runs managed by a Data Science Pipelines Application (DSPA).

Submission uses curated parameter profiles that encode configurations
proven against specific production failure modes (CUDA memory pressure,
storage access modes, scheduling constraints). Monitoring polls the Argo
workflow behind a run and prints human-readable progress. The unstick
command automates the manual remediation sequence for wedged workflows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .dspactl.yaml, then ~/.config/dspactl)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-essential output")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "",
		"namespace where the DSPA is deployed (default: petloan-instructlab)")
	rootCmd.PersistentFlags().StringVar(&kubeBinary, "kube-binary", "",
		"cluster CLI to use (oc or kubectl; default: prefer oc)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))
	_ = viper.BindPFlag("kube.binary", rootCmd.PersistentFlags().Lookup("kube-binary"))
}

// Command screen runs the resume analysis pipeline from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resume-screener/internal/shared/config"
	"resume-screener/internal/shared/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "screen",
	Short: "Score resumes against a job description",
	Long:  "screen extracts text from resume files and pasted texts, then scores every candidate against a job description with the configured language model.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return telemetry.Init(logEnv)
	},
}

var (
	cfg    config.Config
	logEnv string
)

func init() {
	// Logs go to stderr; JSON results go to stdout.
	rootCmd.PersistentFlags().StringVar(&logEnv, "log-env", "production", "Logger preset (dev for console output)")
}

func main() {
	defer telemetry.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

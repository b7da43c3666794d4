package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "poscope/internal/errors"
	"poscope/internal/infrastructure"
)

var rootCmd = &cobra.Command{
	Use:   "poscope",
	Short: "Clean cafeteria POS exports and forecast customers from the academic calendar",
	Long: `poscope runs the POScope pipelines without the web service.

Configuration is read like the server: defaults, then config.yaml,
then POSCOPE_* environment variables. Logs go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(validateSyllabusCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and prints any failure with its
// user-facing message
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, Error(describe(err)))
	}
	return err
}

// describe prefers the Japanese message of domain errors and falls back to
// the raw error for flag and file problems
func describe(err error) string {
	if msg := apperrors.UserMessage(err); msg != apperrors.MsgInternal {
		return msg
	}
	return err.Error()
}

// commandContext carries a trace id so the log lines of one run correlate
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return infrastructure.EnsureTraceID(ctx)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"poscope/pkg/contracts"
)

var versionCmd = LeafCommand{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
			Primary(contracts.GetFullVersionString()),
			Silent("model format "+contracts.ModelFormatVersion))
		return nil
	},
}.Build()

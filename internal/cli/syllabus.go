package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"poscope/pkg/contracts/domain"
)

var validateSyllabusCmd = LeafCommand{
	Use:   "validate-syllabus FILE",
	Short: "Check that the enrollment workbook covers contiguous terms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}
		return runValidateSyllabus(cmd, env, args[0])
	},
}.Build()

func runValidateSyllabus(cmd *cobra.Command, env *environment, path string) error {
	syllabus, ranges, err := env.readSyllabus(path)
	if err != nil {
		return err
	}

	rows := [][]string{
		{domain.StoreWest.CampusName(), ranges.West.String(), fmt.Sprint(len(syllabus.West.Columns))},
		{domain.StoreEast.CampusName(), ranges.East.String(), fmt.Sprint(len(syllabus.East.Columns))},
	}
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, renderTable([]string{"キャンパス", "期間", "学期数"}, rows))
	_, _ = fmt.Fprintln(w, Success("ok"))
	return nil
}

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"poscope/internal/academic"
	"poscope/internal/exporter"
	"poscope/pkg/contracts/domain"
)

var featuresCmd = LeafCommand{
	Use:   "features",
	Short: "Derive calendar features for one store",
	Args:  cobra.NoArgs,
	StrFlags: []StringFlag{
		{Name: "calendar", Usage: "calendar file (xlsx or csv)"},
		{Name: "syllabus", Usage: "enrollment workbook (xlsx)"},
		{Name: "store", Usage: "west or east"},
		{Name: "out", Usage: "output CSV file", Default: exporter.FeaturesFile},
	},
	Required: []string{"calendar", "syllabus", "store"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}
		calendar, _ := cmd.Flags().GetString("calendar")
		syllabus, _ := cmd.Flags().GetString("syllabus")
		store, _ := cmd.Flags().GetString("store")
		out, _ := cmd.Flags().GetString("out")
		return runFeatures(cmd, env, calendar, syllabus, store, out)
	},
}.Build()

func runFeatures(cmd *cobra.Command, env *environment, calendarPath, syllabusPath, storeName, out string) error {
	store, err := domain.ParseStore(storeName)
	if err != nil {
		return err
	}
	features, err := env.buildFeatures(calendarPath, syllabusPath, store)
	if err != nil {
		return err
	}

	dir := filepath.Dir(out)
	if err := env.validator.ValidateOutputDirectory(dir); err != nil {
		return err
	}
	path, err := exporter.NewDatasetExporter(exporter.NewCSVWriter(dir, env.logger)).
		ExportFeatures(features, filepath.Base(out))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "%s %d %s %d\n",
		Silent("calendar rows"), len(features),
		Silent("usable"), len(academic.Usable(features)))
	_, _ = fmt.Fprintln(w, Success("wrote ")+path)
	return nil
}

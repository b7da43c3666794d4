package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"poscope/internal/dataprocessing"
	"poscope/internal/exporter"
	"poscope/pkg/contracts/domain"
)

var cleanCmd = LeafCommand{
	Use:   "clean",
	Short: "Clean POS archives into visits.csv and items.csv",
	Long: `Reads one or more register exports (zip), drops cancelled and invalid
checkouts, merges payments and writes Shift-JIS CSV files to --out.`,
	Args: cobra.NoArgs,
	StrFlags: []StringFlag{
		{Name: "out", Usage: "output directory", Default: "."},
	},
	SliceFlags: []StringSliceFlag{
		{Name: "archive", Usage: "POS export zip (repeatable)"},
	},
	Required: []string{"archive"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}
		archives, _ := cmd.Flags().GetStringArray("archive")
		out, _ := cmd.Flags().GetString("out")
		return runClean(cmd, env, archives, out)
	},
}.Build()

func runClean(cmd *cobra.Command, env *environment, paths []string, outDir string) error {
	archives, err := env.readArchives(paths)
	if err != nil {
		return err
	}
	if err := env.validator.ValidateOutputDirectory(outDir); err != nil {
		return err
	}

	pipeline, err := dataprocessing.NewPipeline(env.cfg.Pipeline, nil, env.logger)
	if err != nil {
		return err
	}
	ds, report, err := pipeline.Run(commandContext(cmd), archives)
	if err != nil {
		return err
	}

	written, err := exporter.NewDatasetExporter(exporter.NewCSVWriter(outDir, env.logger)).ExportDataset(ds)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	s := report.Stats
	_, _ = fmt.Fprintln(w, renderTable([]string{"", "件数"}, [][]string{
		{"会計 (読込)", strconv.Itoa(s.RawCheckouts)},
		{"取消", strconv.Itoa(s.CancelledCheckouts)},
		{"不正", strconv.Itoa(s.InvalidCheckouts)},
		{"未払い", strconv.Itoa(s.UnpaidCheckouts)},
		{"支払い方法の変更", strconv.Itoa(s.MethodSwitches)},
		{"来店", strconv.Itoa(s.Visits)},
		{"商品明細", strconv.Itoa(s.ItemSales)},
	}))

	stores := make([]string, 0, len(report.StoreRanges))
	for store := range report.StoreRanges {
		stores = append(stores, string(store))
	}
	sort.Strings(stores)
	for _, store := range stores {
		r := report.StoreRanges[domain.Store(store)]
		if r == nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s %s - %s\n", Silent(domain.Store(store).DisplayName()),
			r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	}
	for _, name := range report.DuplicateArchives {
		_, _ = fmt.Fprintln(w, Warning("同一のアーカイブを読み飛ばしました: "+name))
	}
	for _, p := range written {
		_, _ = fmt.Fprintln(w, Success("wrote ")+p)
	}
	return nil
}

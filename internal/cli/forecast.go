package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"poscope/internal/academic"
	"poscope/internal/analytics"
	"poscope/internal/dataprocessing"
	apperrors "poscope/internal/errors"
	"poscope/internal/exporter"
	"poscope/internal/forecast"
	"poscope/pkg/contracts/domain"
)

// forecastOptions are the inputs of one forecast run
type forecastOptions struct {
	Archives       []string
	Calendar       string
	Syllabus       string
	Store          string
	Hours          string
	ModelOut       string
	PredictionsOut string
}

var forecastCmd = LeafCommand{
	Use:   "forecast",
	Short: "Train a customer model and predict the remaining calendar dates",
	Long: `Cleans the POS archives, joins daily customers with calendar features
of the selected store and hours, trains the model on the chronological head
and predicts every calendar date after the last day with sales.`,
	Args: cobra.NoArgs,
	StrFlags: []StringFlag{
		{Name: "calendar", Usage: "calendar file (xlsx or csv)"},
		{Name: "syllabus", Usage: "enrollment workbook (xlsx)"},
		{Name: "store", Usage: "west or east"},
		{Name: "hours", Usage: "midday, evening or both", Default: string(domain.HoursBoth)},
		{Name: "model-out", Usage: "write the trained model artifact to this file"},
		{Name: "predictions-out", Usage: "write predictions as CSV to this file"},
	},
	SliceFlags: []StringSliceFlag{
		{Name: "archive", Usage: "POS export zip (repeatable)"},
	},
	Required: []string{"archive", "calendar", "syllabus", "store"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}
		var opts forecastOptions
		opts.Archives, _ = cmd.Flags().GetStringArray("archive")
		opts.Calendar, _ = cmd.Flags().GetString("calendar")
		opts.Syllabus, _ = cmd.Flags().GetString("syllabus")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.Hours, _ = cmd.Flags().GetString("hours")
		opts.ModelOut, _ = cmd.Flags().GetString("model-out")
		opts.PredictionsOut, _ = cmd.Flags().GetString("predictions-out")
		return runForecast(cmd, env, opts)
	},
}.Build()

func runForecast(cmd *cobra.Command, env *environment, opts forecastOptions) error {
	ctx := commandContext(cmd)

	store, err := domain.ParseStore(opts.Store)
	if err != nil {
		return err
	}
	hours := domain.BusinessHours(opts.Hours)
	if !hours.Valid() {
		return fmt.Errorf("unknown business hours %q", opts.Hours)
	}
	sel := domain.ForecastSelection{Store: store, Hours: hours}

	archives, err := env.readArchives(opts.Archives)
	if err != nil {
		return err
	}
	pipeline, err := dataprocessing.NewPipeline(env.cfg.Pipeline, nil, env.logger)
	if err != nil {
		return err
	}
	ds, _, err := pipeline.Run(ctx, archives)
	if err != nil {
		return err
	}
	features, err := env.buildFeatures(opts.Calendar, opts.Syllabus, store)
	if err != nil {
		return err
	}

	engine := forecast.NewEngine(env.cfg.Forecast.ValidationRatio, nil, env.logger)
	labels := analytics.DailyCustomers(ds.Visits, forecast.LabelQuery(sel))
	if err := engine.Prepare(ctx, sel, labels, academic.Usable(features)); err != nil {
		return err
	}
	metrics, err := engine.Train(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "%s %s / %s\n", Primary("forecast"), store.DisplayName(), hours.Label())
	printMetrics(w, metrics)

	if opts.ModelOut != "" {
		if err := saveModel(engine, opts.ModelOut); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, Success("wrote ")+opts.ModelOut)
	}

	preds, err := engine.Predict(ctx)
	if apperrors.IsType(err, apperrors.ErrTypeEmptyDataset) {
		_, _ = fmt.Fprintln(w, Warning(apperrors.UserMessage(err)))
		return nil
	}
	if err != nil {
		return err
	}
	printPredictions(w, preds)

	if opts.PredictionsOut != "" {
		dir := filepath.Dir(opts.PredictionsOut)
		if err := env.validator.ValidateOutputDirectory(dir); err != nil {
			return err
		}
		path, err := exporter.NewDatasetExporter(exporter.NewCSVWriter(dir, env.logger)).
			ExportPredictions(preds, filepath.Base(opts.PredictionsOut))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, Success("wrote ")+path)
	}
	return nil
}

func saveModel(engine *forecast.Engine, path string) error {
	artifact, err := engine.Artifact()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := forecast.WriteArtifact(f, artifact); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printMetrics(w io.Writer, m *domain.ForecastMetrics) {
	_, _ = fmt.Fprintln(w, renderTable([]string{"", "行数", "RMSE", "MAPE"}, [][]string{
		{"学習", strconv.Itoa(m.FitRows), formatFloat(m.FitRMSE), formatPercent(m.FitMAPE)},
		{"検証", strconv.Itoa(m.ValidationRows), formatFloat(m.ValidationRMSE), formatPercent(m.ValidationMAPE)},
	}))
}

func printPredictions(w io.Writer, preds []domain.Prediction) {
	rows := make([][]string, 0, len(preds))
	for _, p := range preds {
		rows = append(rows, []string{
			p.Date.Format("2006-01-02"),
			string(p.Term),
			string(p.Class),
			formatNumber(p.WeekOfTerm),
			formatNumber(p.Attendance),
			strconv.FormatFloat(p.Customers, 'f', 0, 64),
		})
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"日付", "学期", "曜日区分", "週", "履修者数", "予測客数"}, rows))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatPercent renders a value already expressed in percent
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatNumber(n domain.Number) string {
	if n.IsNaN() {
		return "-"
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

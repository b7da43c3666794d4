package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"poscope/internal/academic"
	"poscope/internal/config"
	"poscope/internal/dataprocessing"
	"poscope/internal/infrastructure"
	"poscope/internal/validation"
	"poscope/pkg/contracts/domain"
)

// environment carries what every subcommand needs
type environment struct {
	cfg       *config.Config
	logger    *slog.Logger
	validator *validation.FileValidator
}

// loadEnvironment reads the configuration and builds a stderr logger
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return newEnvironment(cfg, logger), nil
}

func newEnvironment(cfg *config.Config, logger *slog.Logger) *environment {
	return &environment{
		cfg:       cfg,
		logger:    logger,
		validator: validation.NewFileValidator(cfg.Security.MaxUploadBytes, logger),
	}
}

// readArchives loads POS zip files in argument order
func (e *environment) readArchives(paths []string) ([]dataprocessing.Archive, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one --archive is required")
	}
	archives := make([]dataprocessing.Archive, 0, len(paths))
	for _, p := range paths {
		data, err := e.validator.ReadInput(validation.KindPOS, p)
		if err != nil {
			return nil, err
		}
		archives = append(archives, dataprocessing.Archive{Name: filepath.Base(p), Data: data})
	}
	return archives, nil
}

// readSyllabus loads the enrollment workbook and rejects term gaps
func (e *environment) readSyllabus(path string) (*domain.Syllabus, *academic.SyllabusRanges, error) {
	data, err := e.validator.ReadInput(validation.KindSyllabus, path)
	if err != nil {
		return nil, nil, err
	}
	syllabus, err := dataprocessing.LoadSyllabus(filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	ranges, err := academic.ValidateSyllabus(syllabus)
	if err != nil {
		return nil, nil, err
	}
	return syllabus, ranges, nil
}

func (e *environment) readCalendar(path string) (*domain.Calendar, error) {
	data, err := e.validator.ReadInput(validation.KindCalendar, path)
	if err != nil {
		return nil, err
	}
	return dataprocessing.LoadCalendar(filepath.Base(path), bytes.NewReader(data))
}

// buildFeatures derives calendar features for one store
func (e *environment) buildFeatures(calendarPath, syllabusPath string, store domain.Store) ([]domain.CalendarFeatures, error) {
	cal, err := e.readCalendar(calendarPath)
	if err != nil {
		return nil, err
	}
	syllabus, _, err := e.readSyllabus(syllabusPath)
	if err != nil {
		return nil, err
	}
	opts, err := academic.OptionsFromConfig(e.cfg.Features)
	if err != nil {
		return nil, err
	}
	return academic.NewFeatureBuilder(opts, e.logger).Build(cal, syllabus.For(store)), nil
}

package services

import (
	"bytes"
	"context"
	"log/slog"
	"sort"

	"poscope/internal/academic"
	"poscope/internal/dataprocessing"
	apperrors "poscope/internal/errors"
	"poscope/internal/infrastructure"
	"poscope/internal/session"
	"poscope/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// UploadedFile is one file received from a client
type UploadedFile struct {
	Name string
	Data []byte
}

// UploadService validates, loads and stores session inputs. A rejected
// upload never touches the session's previous state.
type UploadService struct {
	sessionResolver
	validator *validation.FileValidator
	pipeline  *dataprocessing.Pipeline
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewUploadService creates an upload service. metrics may be nil.
func NewUploadService(store *session.Store, validator *validation.FileValidator, pipeline *dataprocessing.Pipeline, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		sessionResolver: sessionResolver{store: store},
		validator:       validator,
		pipeline:        pipeline,
		metrics:         metrics,
		logger:          logger.With(slog.String("service", "upload")),
	}
}

// UploadPOS cleans and merges one or more POS archives into the session
func (s *UploadService) UploadPOS(ctx context.Context, sessionID string, files []UploadedFile) (summary *POSSummary, err error) {
	defer func() { s.metrics.RecordUpload(ctx, string(validation.KindPOS), err == nil) }()

	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, noFiles()
	}

	archives := make([]dataprocessing.Archive, 0, len(files))
	for _, f := range files {
		if err := s.validator.ValidateUpload(validation.KindPOS, f.Name, f.Data); err != nil {
			return nil, err
		}
		archives = append(archives, dataprocessing.Archive{Name: f.Name, Data: f.Data})
	}

	dataset, report, err := s.pipeline.Run(ctx, archives)
	if err != nil {
		s.logger.WarnContext(ctx, "pos upload rejected",
			slog.String("session_id", sessionID),
			slog.Int("archives", len(archives)),
			slog.Any("error", err))
		return nil, loadFailed(string(validation.KindPOS), err)
	}

	digests := make([]string, len(archives))
	for i, a := range archives {
		digests[i] = a.Digest()
	}
	sort.Strings(digests)

	in := session.POSInput{
		Dataset: dataset,
		Report:  report,
		Digest:  session.KeyOf(digests...).String(),
	}
	sess.SetPOS(in)

	infrastructure.AddSpanEvent(ctx, "pos.accepted",
		attribute.Int("visits", len(dataset.Visits)),
		attribute.Int("items", len(dataset.Items)))
	s.logger.InfoContext(ctx, "pos upload accepted",
		slog.String("session_id", sessionID),
		slog.Int("archives", report.Archives),
		slog.Int("visits", len(dataset.Visits)),
		slog.Int("items", len(dataset.Items)))
	return posSummary(&in), nil
}

// UploadSyllabus loads the syllabus workbook and checks both campus term
// sequences before storing it
func (s *UploadService) UploadSyllabus(ctx context.Context, sessionID string, file UploadedFile) (summary *SyllabusSummary, err error) {
	defer func() { s.metrics.RecordUpload(ctx, string(validation.KindSyllabus), err == nil) }()

	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUpload(validation.KindSyllabus, file.Name, file.Data); err != nil {
		return nil, err
	}

	syllabus, err := dataprocessing.LoadSyllabus(file.Name, bytes.NewReader(file.Data))
	if err != nil {
		return nil, loadFailed(string(validation.KindSyllabus), err)
	}
	ranges, err := academic.ValidateSyllabus(syllabus)
	if err != nil {
		s.logger.WarnContext(ctx, "syllabus rejected",
			slog.String("session_id", sessionID),
			slog.String("file", file.Name),
			slog.Any("error", err))
		return nil, loadFailed(string(validation.KindSyllabus), err)
	}

	in := session.SyllabusInput{
		Name:     file.Name,
		Syllabus: syllabus,
		Ranges:   ranges,
		Digest:   session.KeyOf(string(file.Data)).String(),
	}
	sess.SetSyllabus(in)

	s.logger.InfoContext(ctx, "syllabus accepted",
		slog.String("session_id", sessionID),
		slog.String("west", ranges.West.String()),
		slog.String("east", ranges.East.String()))
	return syllabusSummary(&in), nil
}

// UploadCalendar loads the academic calendar from a workbook or CSV file
func (s *UploadService) UploadCalendar(ctx context.Context, sessionID string, file UploadedFile) (summary *CalendarSummary, err error) {
	defer func() { s.metrics.RecordUpload(ctx, string(validation.KindCalendar), err == nil) }()

	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUpload(validation.KindCalendar, file.Name, file.Data); err != nil {
		return nil, err
	}

	cal, err := dataprocessing.LoadCalendar(file.Name, bytes.NewReader(file.Data))
	if err != nil {
		return nil, loadFailed(string(validation.KindCalendar), err)
	}

	in := session.CalendarInput{
		Name:     file.Name,
		Calendar: cal,
		Digest:   session.KeyOf(string(file.Data)).String(),
	}
	sess.SetCalendar(in)

	s.logger.InfoContext(ctx, "calendar accepted",
		slog.String("session_id", sessionID),
		slog.Int("days", len(cal.Days)))
	return calendarSummary(&in), nil
}

func noFiles() error {
	return apperrors.NewAppError(apperrors.ErrTypeValidation, "no files uploaded", MsgNoFiles, ErrNoFiles)
}

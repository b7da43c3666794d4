package services

import (
	"context"
	"log/slog"

	"poscope/internal/academic"
	"poscope/internal/analytics"
	apperrors "poscope/internal/errors"
	"poscope/internal/forecast"
	"poscope/internal/infrastructure"
	"poscope/internal/session"
	"poscope/pkg/contracts/domain"

	"go.opentelemetry.io/otel/attribute"
)

// Memo stages of the forecast inputs
const (
	stageFeatures = "calendar_features"
	stageLabels   = "daily_customers"
)

// MsgInvalidStore asks for a store selection
const MsgInvalidStore = "店舗を選択してください。"

// ForecastService drives the per-session forecast engine
type ForecastService struct {
	sessionResolver
	builder *academic.FeatureBuilder
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewForecastService creates a forecast service. metrics may be nil.
func NewForecastService(store *session.Store, builder *academic.FeatureBuilder, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ForecastService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastService{
		sessionResolver: sessionResolver{store: store},
		builder:         builder,
		metrics:         metrics,
		logger:          logger.With(slog.String("service", "forecast")),
	}
}

// Status returns the engine state with its enabled actions
func (s *ForecastService) Status(ctx context.Context, sessionID string) (*domain.ForecastStatus, error) {
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	status := sess.ForecastStatus()
	return &status, nil
}

// Select prepares the engine for a store and business hours. Every input
// must be uploaded; the engine is left idle when preparation fails.
func (s *ForecastService) Select(ctx context.Context, sessionID string, sel domain.ForecastSelection) (*domain.ForecastStatus, error) {
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}

	err = sess.Forecast(func(st session.AppState, e *forecast.Engine) error {
		if missing := st.Missing(); len(missing) > 0 {
			return missingInputs("prepare forecast", missing, ErrMissingInputs)
		}
		features, err := s.features(ctx, sess, st, sel.Store)
		if err != nil {
			return err
		}
		labels, err := s.labels(ctx, sess, st, sel)
		if err != nil {
			return err
		}
		return e.Prepare(ctx, sel, labels, academic.Usable(features))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "forecast selection rejected",
			slog.String("session_id", sessionID),
			slog.String("store", string(sel.Store)),
			slog.String("hours", string(sel.Hours)),
			slog.Any("error", err))
		return nil, err
	}

	infrastructure.AddSpanEvent(ctx, "forecast.prepared",
		attribute.String("store", string(sel.Store)),
		attribute.String("hours", string(sel.Hours)))
	status := sess.ForecastStatus()
	return &status, nil
}

// Train fits the model of the prepared selection
func (s *ForecastService) Train(ctx context.Context, sessionID string) (*domain.ForecastMetrics, error) {
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	var out *domain.ForecastMetrics
	err = sess.Forecast(func(_ session.AppState, e *forecast.Engine) error {
		m, err := e.Train(ctx)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Predict forecasts customers for every predictable calendar date
func (s *ForecastService) Predict(ctx context.Context, sessionID string) ([]domain.Prediction, error) {
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	var out []domain.Prediction
	err = sess.Forecast(func(_ session.AppState, e *forecast.Engine) error {
		p, err := e.Predict(ctx)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExportModel returns the trained model artifact
func (s *ForecastService) ExportModel(ctx context.Context, sessionID string) (*forecast.Artifact, error) {
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	var out *forecast.Artifact
	err = sess.Forecast(func(_ session.AppState, e *forecast.Engine) error {
		a, err := e.Artifact()
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InstallModel replaces training with a previously exported artifact
func (s *ForecastService) InstallModel(ctx context.Context, sessionID string, a *forecast.Artifact) (*domain.ForecastStatus, error) {
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Forecast(func(_ session.AppState, e *forecast.Engine) error {
		return e.Install(a)
	}); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "forecast model installed", slog.String("session_id", sessionID))
	status := sess.ForecastStatus()
	return &status, nil
}

// Features returns every calendar row with its derived features for a store
func (s *ForecastService) Features(ctx context.Context, sessionID string, store domain.Store) ([]domain.CalendarFeatures, error) {
	if !store.Valid() {
		return nil, apperrors.NewAppValidationError("invalid store "+string(store), MsgInvalidStore)
	}
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	st := sess.State()
	var missing []string
	if st.Syllabus == nil {
		missing = append(missing, session.InputSyllabus)
	}
	if st.Calendar == nil {
		missing = append(missing, session.InputCalendar)
	}
	if len(missing) > 0 {
		return nil, missingInputs("calendar features", missing, ErrMissingInputs)
	}
	return s.features(ctx, sess, st, store)
}

// Attendance sums the configured periods per weekday and term for a store
func (s *ForecastService) Attendance(ctx context.Context, sessionID string, store domain.Store) (*domain.Table, error) {
	if !store.Valid() {
		return nil, apperrors.NewAppValidationError("invalid store "+string(store), MsgInvalidStore)
	}
	sess, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	syllabus := sess.State().Syllabus
	if syllabus == nil {
		return nil, missingInputs("attendance", []string{session.InputSyllabus}, ErrNoSyllabus)
	}
	return academic.AttendanceTable(syllabus.Syllabus.For(store), s.builder.Options().Periods), nil
}

func (s *ForecastService) features(ctx context.Context, sess *session.Session, st session.AppState, store domain.Store) ([]domain.CalendarFeatures, error) {
	key := session.KeyOf(stageFeatures, st.Calendar.Digest, st.Syllabus.Digest, string(store))
	return session.Remember(ctx, sess.Memo(), stageFeatures, key, func() ([]domain.CalendarFeatures, error) {
		return s.builder.Build(st.Calendar.Calendar, st.Syllabus.Syllabus.For(store)), nil
	})
}

func (s *ForecastService) labels(ctx context.Context, sess *session.Session, st session.AppState, sel domain.ForecastSelection) ([]analytics.DailyCount, error) {
	key := session.KeyOf(stageLabels, st.POS.Digest, string(sel.Store), string(sel.Hours))
	return session.Remember(ctx, sess.Memo(), stageLabels, key, func() ([]analytics.DailyCount, error) {
		return analytics.DailyCustomers(st.POS.Dataset.Visits, forecast.LabelQuery(sel)), nil
	})
}

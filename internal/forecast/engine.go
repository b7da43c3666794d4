package forecast

import (
	"context"
	"log/slog"
	"time"

	"poscope/internal/analytics"
	apperrors "poscope/internal/errors"
	"poscope/internal/infrastructure"
	"poscope/pkg/contracts/domain"
)

// Engine runs the forecast lifecycle of one session:
// idle → prepared → trained → predicted. Preparing again with any selection
// returns to prepared; Invalidate returns to idle. Engine is not safe for
// concurrent use; the owning session serializes access.
type Engine struct {
	ratio   float64
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger

	state       domain.ForecastState
	data        *Dataset
	model       *Model
	accuracy    *domain.ForecastMetrics
	predictions []domain.Prediction

	// dates the current model was fitted on, which differ from data when the
	// model was installed
	trainedFrom time.Time
	trainedTo   time.Time
}

// NewEngine creates an idle engine. ratio is the validation share of the
// trainable rows. metrics may be nil.
func NewEngine(ratio float64, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Engine {
	return &Engine{
		ratio:   ratio,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "forecast_engine")),
		state:   domain.ForecastIdle,
	}
}

// State returns the current lifecycle state
func (e *Engine) State() domain.ForecastState {
	return e.state
}

// Selection returns the prepared selection, if any
func (e *Engine) Selection() *domain.ForecastSelection {
	if e.data == nil {
		return nil
	}
	sel := e.data.Selection
	return &sel
}

// CanTrain reports whether Train is currently allowed
func (e *Engine) CanTrain() bool {
	return e.state != domain.ForecastIdle
}

// CanPredict reports whether Predict is currently allowed
func (e *Engine) CanPredict() bool {
	return e.state == domain.ForecastTrained || e.state == domain.ForecastPredicted
}

// Invalidate discards the prepared data, the model and any prediction
func (e *Engine) Invalidate() {
	if e.state != domain.ForecastIdle {
		e.logger.Info("forecast invalidated", slog.String("from", string(e.state)))
	}
	e.reset(domain.ForecastIdle)
	e.data = nil
}

func (e *Engine) reset(state domain.ForecastState) {
	e.state = state
	e.model = nil
	e.accuracy = nil
	e.predictions = nil
	e.trainedFrom = time.Time{}
	e.trainedTo = time.Time{}
}

// Prepare joins the label series with the calendar features for a
// selection. Any trained model or prediction is discarded. On failure the
// engine is idle.
func (e *Engine) Prepare(ctx context.Context, sel domain.ForecastSelection, labels []analytics.DailyCount, features []domain.CalendarFeatures) (err error) {
	start := time.Now()
	defer func() { e.metrics.RecordForecastAction(ctx, "prepare", time.Since(start), err) }()

	if !sel.Store.Valid() || !sel.Hours.Valid() {
		e.Invalidate()
		return apperrors.NewAppValidationError("invalid forecast selection", "店舗と営業時間を選択してください。")
	}

	data, err := BuildDataset(sel, labels, features)
	if err != nil {
		e.Invalidate()
		return err
	}
	if len(data.Trainable) < 2 {
		e.Invalidate()
		return apperrors.NewEmptyDatasetError("fewer than two trainable rows", MsgTooFewRows)
	}

	e.reset(domain.ForecastPrepared)
	e.data = data
	if data.DroppedDays > 0 {
		e.logger.WarnContext(ctx, "dropped label days without customers",
			slog.Int("days", data.DroppedDays))
	}
	e.logger.InfoContext(ctx, "forecast prepared",
		slog.String("store", string(sel.Store)),
		slog.String("hours", string(sel.Hours)),
		slog.Int("trainable", len(data.Trainable)),
		slog.Int("predictable", len(data.Predictable)))
	return nil
}

// Train fits the model on the chronological head of the trainable rows and
// reports accuracy on both partitions
func (e *Engine) Train(ctx context.Context) (m *domain.ForecastMetrics, err error) {
	start := time.Now()
	defer func() { e.metrics.RecordForecastAction(ctx, "train", time.Since(start), err) }()

	if !e.CanTrain() {
		return nil, apperrors.NewStaleStateError("train", MsgNotPrepared)
	}

	fit, validation := e.data.Split(e.ratio)
	if len(fit) == 0 || len(validation) == 0 {
		return nil, apperrors.NewEmptyDatasetError("empty fit or validation partition", MsgTooFewRows)
	}

	x := make([][]float64, len(fit))
	y := make([]float64, len(fit))
	for i, s := range fit {
		x[i] = s.Vector()
		y[i] = s.Customers
	}
	model, err := Fit(x, y)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeData, "model fit failed", MsgTooFewRows, err)
	}

	metrics := &domain.ForecastMetrics{
		FitRows:        len(fit),
		ValidationRows: len(validation),
	}
	metrics.FitRMSE, metrics.FitMAPE = model.evaluate(fit)
	metrics.ValidationRMSE, metrics.ValidationMAPE = model.evaluate(validation)

	e.reset(domain.ForecastTrained)
	e.model = model
	e.accuracy = metrics
	e.trainedFrom = fit[0].Day.Date
	e.trainedTo = fit[len(fit)-1].Day.Date

	e.logger.InfoContext(ctx, "forecast model trained",
		slog.Int("fit_rows", metrics.FitRows),
		slog.Int("validation_rows", metrics.ValidationRows),
		slog.Float64("validation_rmse", metrics.ValidationRMSE),
		slog.Float64("validation_mape", metrics.ValidationMAPE))
	return metrics, nil
}

// Predict applies the model to every predictable date
func (e *Engine) Predict(ctx context.Context) (out []domain.Prediction, err error) {
	start := time.Now()
	defer func() { e.metrics.RecordForecastAction(ctx, "predict", time.Since(start), err) }()

	if !e.CanPredict() {
		return nil, apperrors.NewStaleStateError("predict", MsgNotTrained)
	}
	if len(e.data.Predictable) == 0 {
		return nil, apperrors.NewEmptyDatasetError("no predictable dates", MsgNoPredictable)
	}

	out = make([]domain.Prediction, 0, len(e.data.Predictable))
	for _, s := range e.data.Predictable {
		out = append(out, domain.Prediction{
			Date:       s.Day.Date,
			Term:       s.Day.Term,
			Class:      s.Day.Class,
			WeekOfTerm: s.Day.WeekOfTerm,
			Attendance: s.Day.Attendance,
			Customers:  e.model.Predict(s.Vector()),
		})
	}

	e.state = domain.ForecastPredicted
	e.predictions = out
	e.logger.InfoContext(ctx, "forecast predicted", slog.Int("dates", len(out)))
	return out, nil
}

// Status summarizes the engine for clients
func (e *Engine) Status() domain.ForecastStatus {
	st := domain.ForecastStatus{
		State:       e.state,
		Selection:   e.Selection(),
		CanTrain:    e.CanTrain(),
		CanPredict:  e.CanPredict(),
		Metrics:     e.accuracy,
		Predictions: e.predictions,
	}
	if e.data != nil {
		st.Trainable = len(e.data.Trainable)
		st.Predictable = len(e.data.Predictable)
	}
	return st
}

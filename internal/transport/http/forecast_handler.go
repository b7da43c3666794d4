package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "poscope/internal/errors"
	"poscope/internal/exporter"
	"poscope/internal/forecast"
	"poscope/internal/middleware"
	"poscope/pkg/contracts/domain"
)

const contentTypeModel = "application/json"

// ForecastHandler drives the per-session forecast workflow
type ForecastHandler struct {
	service      ForecastServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service ForecastServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "forecast_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the forecast routes
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.ContentTypeValidator("application/json"))
		r.Get("/", h.Status)
		r.Put("/selection", h.Select)
		r.Post("/train", h.Train)
		r.Put("/model", h.InstallModel)
	})

	r.Post("/predict", h.Predict)
	r.Get("/model", h.ExportModel)
	r.Get("/attendance", h.Attendance)
	r.Get("/features", h.Features)
	return r
}

// Status handles GET .../forecast
func (h *ForecastHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   status,
	})
}

// Select handles PUT .../forecast/selection
func (h *ForecastHandler) Select(w http.ResponseWriter, r *http.Request) {
	var sel domain.ForecastSelection
	if err := render.DecodeJSON(r.Body, &sel); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(sel); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	status, err := h.service.Select(r.Context(), sessionID(r), sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   status,
	})
}

// Train handles POST .../forecast/train
func (h *ForecastHandler) Train(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Train(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   metrics,
	})
}

// Predict handles POST .../forecast/predict. format=csv downloads the rows.
func (h *ForecastHandler) Predict(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if format == FormatXLSX {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "json または csv を指定してください"))
		return
	}

	preds, err := h.service.Predict(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == FormatCSV {
		headers, records := exporter.PredictionRecords(preds)
		if err := writeRecords(w, r, h.logger, "predictions.csv", headers, records); err != nil {
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   preds,
		"count":  len(preds),
	})
}

// ExportModel handles GET .../forecast/model
func (h *ForecastHandler) ExportModel(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.service.ExportModel(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := forecast.WriteArtifact(&buf, artifact); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	name := fmt.Sprintf("model_%s_%s.json", artifact.Store, artifact.Hours)
	_ = writeFile(w, h.logger, name, contentTypeModel, buf.Bytes())
}

// InstallModel handles PUT .../forecast/model with a previously exported artifact
func (h *ForecastHandler) InstallModel(w http.ResponseWriter, r *http.Request) {
	artifact, err := forecast.ReadArtifact(r.Body)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	status, err := h.service.InstallModel(r.Context(), sessionID(r), artifact)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "model installed",
		slog.String("store", string(artifact.Store)),
		slog.String("hours", string(artifact.Hours)))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   status,
	})
}

// Attendance handles GET .../forecast/attendance?store=
func (h *ForecastHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	store, format, err := storeAndFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	table, err := h.service.Attendance(r.Context(), sessionID(r), store)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := writeTable(w, r, h.logger, table, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
	}
}

// Features handles GET .../forecast/features?store=
func (h *ForecastHandler) Features(w http.ResponseWriter, r *http.Request) {
	store, format, err := storeAndFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if format == FormatXLSX {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "json または csv を指定してください"))
		return
	}

	features, err := h.service.Features(r.Context(), sessionID(r), store)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == FormatCSV {
		headers, records := exporter.FeatureRecords(features)
		name := fmt.Sprintf("calendar_features_%s.csv", store)
		if err := writeRecords(w, r, h.logger, name, headers, records); err != nil {
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   features,
		"count":  len(features),
	})
}

func storeAndFormat(r *http.Request) (domain.Store, string, error) {
	format, err := parseFormat(r)
	if err != nil {
		return "", "", err
	}
	store, err := domain.ParseStore(r.URL.Query().Get("store"))
	if err != nil {
		return "", "", apierrors.ErrValidation("store", "店舗を選択してください")
	}
	return store, format, nil
}

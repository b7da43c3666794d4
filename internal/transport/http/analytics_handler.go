package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"poscope/internal/analytics"
	apierrors "poscope/internal/errors"
	"poscope/internal/middleware"
	"poscope/pkg/contracts/domain"
)

// AnalyticsHandler exposes the POS aggregations. Tables are returned as
// JSON or, with format=csv|xlsx, as a file download.
type AnalyticsHandler struct {
	service      AnalyticsServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service AnalyticsServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "analytics_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the aggregation routes
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/customers-by-time", h.CustomersByTime)
	r.Get("/customers-per-day", h.CustomersPerDay)
	r.Get("/payment-methods", h.PaymentMethods)

	r.Route("/sales", func(r chi.Router) {
		r.Get("/items", h.SalesByItem)
		r.Get("/departments", h.SalesByDepartment)
		r.Get("/supply", h.DailySupply)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/items/candidates", h.ItemCandidates)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/departments/candidates", h.DepartmentCandidates)
	})
	return r
}

// query parses and validates the shared filters and the output format
func (h *AnalyticsHandler) query(r *http.Request) (analytics.Query, string, error) {
	format, err := parseFormat(r)
	if err != nil {
		return analytics.Query{}, "", err
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		return analytics.Query{}, "", err
	}
	if err := h.validator.Struct(q); err != nil {
		return analytics.Query{}, "", err
	}
	return q, format, nil
}

// CustomersByTime handles GET .../analytics/customers-by-time
func (h *AnalyticsHandler) CustomersByTime(w http.ResponseWriter, r *http.Request) {
	q, format, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	span, err := strconv.Atoi(r.URL.Query().Get("span"))
	if err != nil || !analytics.ValidSpan(span) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("span", "5, 10, 30 のいずれかを指定してください"))
		return
	}

	result, err := h.service.CustomersByTime(r.Context(), sessionID(r), q, span)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if format != FormatJSON {
		h.respond(w, r, result.Table, format)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"empty":  result.Table.Empty(),
	})
}

// CustomersPerDay handles GET .../analytics/customers-per-day
func (h *AnalyticsHandler) CustomersPerDay(w http.ResponseWriter, r *http.Request) {
	q, format, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	table, err := h.service.CustomersPerDay(r.Context(), sessionID(r), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, table, format)
}

// PaymentMethods handles GET .../analytics/payment-methods
func (h *AnalyticsHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	q, format, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	table, err := h.service.PaymentMethods(r.Context(), sessionID(r), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, table, format)
}

// SalesByItem handles GET .../analytics/sales/items
func (h *AnalyticsHandler) SalesByItem(w http.ResponseWriter, r *http.Request) {
	q, format, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	key := itemKey(r)
	value := r.URL.Query().Get("value")
	if value == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("value", "商品を選択してください"))
		return
	}

	table, err := h.service.SalesByItem(r.Context(), sessionID(r), q, key, value, measure(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, table, format)
}

// SalesByDepartment handles GET .../analytics/sales/departments
func (h *AnalyticsHandler) SalesByDepartment(w http.ResponseWriter, r *http.Request) {
	q, format, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	department := r.URL.Query().Get("department")
	if department == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("department", "部門を選択してください"))
		return
	}

	table, err := h.service.SalesByDepartment(r.Context(), sessionID(r), q, department, measure(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, table, format)
}

// DailySupply handles GET .../analytics/sales/supply
func (h *AnalyticsHandler) DailySupply(w http.ResponseWriter, r *http.Request) {
	q, format, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	table, err := h.service.DailySupply(r.Context(), sessionID(r), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, table, format)
}

// ItemCandidates handles GET .../analytics/sales/items/candidates
func (h *AnalyticsHandler) ItemCandidates(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	values, err := h.service.ItemCandidates(r.Context(), sessionID(r), q, itemKey(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   values,
		"count":  len(values),
	})
}

// DepartmentCandidates handles GET .../analytics/sales/departments/candidates
func (h *AnalyticsHandler) DepartmentCandidates(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	values, err := h.service.DepartmentCandidates(r.Context(), sessionID(r), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   values,
		"count":  len(values),
	})
}

func (h *AnalyticsHandler) respond(w http.ResponseWriter, r *http.Request, table *domain.Table, format string) {
	if err := writeTable(w, r, h.logger, table, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
	}
}

// itemKey defaults to matching by item name
func itemKey(r *http.Request) analytics.ItemKey {
	if v := r.URL.Query().Get("by"); v != "" {
		return analytics.ItemKey(v)
	}
	return analytics.ItemByName
}

// measure defaults to quantities
func measure(r *http.Request) analytics.Measure {
	if v := r.URL.Query().Get("measure"); v != "" {
		return analytics.Measure(v)
	}
	return analytics.MeasureQuantity
}

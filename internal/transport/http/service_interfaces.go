package http

import (
	"context"

	"poscope/internal/analytics"
	"poscope/internal/forecast"
	"poscope/internal/services"
	"poscope/pkg/contracts/domain"
)

// SessionServiceInterface defines the session operations
type SessionServiceInterface interface {
	Create(ctx context.Context) (*services.SessionSummary, error)
	Get(ctx context.Context, id string) (*services.SessionSummary, error)
	Delete(ctx context.Context, id string) error
}

// UploadServiceInterface defines the input upload operations
type UploadServiceInterface interface {
	UploadPOS(ctx context.Context, sessionID string, files []services.UploadedFile) (*services.POSSummary, error)
	UploadSyllabus(ctx context.Context, sessionID string, file services.UploadedFile) (*services.SyllabusSummary, error)
	UploadCalendar(ctx context.Context, sessionID string, file services.UploadedFile) (*services.CalendarSummary, error)
}

// AnalyticsServiceInterface defines the aggregation operations
type AnalyticsServiceInterface interface {
	CustomersByTime(ctx context.Context, sessionID string, q analytics.Query, span int) (*analytics.TimeOfDayResult, error)
	CustomersPerDay(ctx context.Context, sessionID string, q analytics.Query) (*domain.Table, error)
	PaymentMethods(ctx context.Context, sessionID string, q analytics.Query) (*domain.Table, error)
	SalesByItem(ctx context.Context, sessionID string, q analytics.Query, key analytics.ItemKey, value string, measure analytics.Measure) (*domain.Table, error)
	SalesByDepartment(ctx context.Context, sessionID string, q analytics.Query, department string, measure analytics.Measure) (*domain.Table, error)
	DailySupply(ctx context.Context, sessionID string, q analytics.Query) (*domain.Table, error)
	ItemCandidates(ctx context.Context, sessionID string, q analytics.Query, key analytics.ItemKey) ([]string, error)
	DepartmentCandidates(ctx context.Context, sessionID string, q analytics.Query) ([]string, error)
}

// ForecastServiceInterface defines the forecast operations
type ForecastServiceInterface interface {
	Status(ctx context.Context, sessionID string) (*domain.ForecastStatus, error)
	Select(ctx context.Context, sessionID string, sel domain.ForecastSelection) (*domain.ForecastStatus, error)
	Train(ctx context.Context, sessionID string) (*domain.ForecastMetrics, error)
	Predict(ctx context.Context, sessionID string) ([]domain.Prediction, error)
	ExportModel(ctx context.Context, sessionID string) (*forecast.Artifact, error)
	InstallModel(ctx context.Context, sessionID string, a *forecast.Artifact) (*domain.ForecastStatus, error)
	Features(ctx context.Context, sessionID string, store domain.Store) ([]domain.CalendarFeatures, error)
	Attendance(ctx context.Context, sessionID string, store domain.Store) (*domain.Table, error)
}

// HealthServiceInterface defines the health operations
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

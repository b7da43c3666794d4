package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"poscope/internal/analytics"
	"poscope/internal/infrastructure"
	"poscope/internal/session"
	"poscope/pkg/contracts/domain"
)

// Aggregation kinds, used as metric labels and memo stages
const (
	AggCustomersByTime = "customers_by_time"
	AggCustomersPerDay = "customers_per_day"
	AggPaymentMethods  = "payment_methods"
	AggSalesByItem     = "sales_by_item"
	AggSalesByDept     = "sales_by_department"
	AggDailySupply     = "daily_supply"
	AggItemCandidates  = "item_candidates"
	AggDeptCandidates  = "department_candidates"
)

// AnalyticsService runs aggregations over a session's POS dataset. Results
// are memoized per session under the dataset digest and the query.
type AnalyticsService struct {
	sessionResolver
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewAnalyticsService creates an analytics service. metrics may be nil.
func NewAnalyticsService(store *session.Store, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		sessionResolver: sessionResolver{store: store},
		metrics:         metrics,
		logger:          logger.With(slog.String("service", "analytics")),
	}
}

// CustomersByTime buckets one store's customers by time of day
func (s *AnalyticsService) CustomersByTime(ctx context.Context, sessionID string, q analytics.Query, span int) (*analytics.TimeOfDayResult, error) {
	if q.Store != domain.StoreFilterWest && q.Store != domain.StoreFilterEast {
		return nil, invalidQuery("time-of-day counts need a single store", nil)
	}
	if !analytics.ValidSpan(span) {
		return nil, invalidQuery("unsupported span "+strconv.Itoa(span), nil)
	}
	return aggregate(ctx, s, sessionID, AggCustomersByTime, q, []string{strconv.Itoa(span)},
		func(pos *session.POSInput) (*analytics.TimeOfDayResult, error) {
			return analytics.CustomersByTimeOfDay(pos.Dataset.Visits, q, span)
		})
}

// CustomersPerDay totals customers per date and store
func (s *AnalyticsService) CustomersPerDay(ctx context.Context, sessionID string, q analytics.Query) (*domain.Table, error) {
	return aggregate(ctx, s, sessionID, AggCustomersPerDay, q, nil,
		func(pos *session.POSInput) (*domain.Table, error) {
			return analytics.CustomersPerDay(pos.Dataset.Visits, q), nil
		})
}

// PaymentMethods weights payment-method usage by customers
func (s *AnalyticsService) PaymentMethods(ctx context.Context, sessionID string, q analytics.Query) (*domain.Table, error) {
	return aggregate(ctx, s, sessionID, AggPaymentMethods, q, nil,
		func(pos *session.POSInput) (*domain.Table, error) {
			return analytics.PaymentMethodRatios(pos.Dataset.Visits, pos.Dataset.PaymentMethods, q), nil
		})
}

// SalesByItem totals one item per date and store
func (s *AnalyticsService) SalesByItem(ctx context.Context, sessionID string, q analytics.Query, key analytics.ItemKey, value string, measure analytics.Measure) (*domain.Table, error) {
	if !key.Valid() || !measure.Valid() {
		return nil, invalidQuery("unsupported item key or measure", nil)
	}
	return aggregate(ctx, s, sessionID, AggSalesByItem, q, []string{string(key), value, string(measure)},
		func(pos *session.POSInput) (*domain.Table, error) {
			return analytics.SalesByItem(pos.Dataset.Items, q, key, value, measure)
		})
}

// SalesByDepartment totals one department per date and store
func (s *AnalyticsService) SalesByDepartment(ctx context.Context, sessionID string, q analytics.Query, department string, measure analytics.Measure) (*domain.Table, error) {
	if !measure.Valid() {
		return nil, invalidQuery("unsupported measure "+string(measure), nil)
	}
	return aggregate(ctx, s, sessionID, AggSalesByDept, q, []string{department, string(measure)},
		func(pos *session.POSInput) (*domain.Table, error) {
			return analytics.SalesByDepartment(pos.Dataset.Items, q, department, measure)
		})
}

// DailySupply totals item quantities per date and store
func (s *AnalyticsService) DailySupply(ctx context.Context, sessionID string, q analytics.Query) (*domain.Table, error) {
	return aggregate(ctx, s, sessionID, AggDailySupply, q, nil,
		func(pos *session.POSInput) (*domain.Table, error) {
			return analytics.DailySupply(pos.Dataset.Items, q), nil
		})
}

// ItemCandidates lists the distinct item values selectable for key
func (s *AnalyticsService) ItemCandidates(ctx context.Context, sessionID string, q analytics.Query, key analytics.ItemKey) ([]string, error) {
	if !key.Valid() {
		return nil, invalidQuery("unsupported item key "+string(key), nil)
	}
	return aggregate(ctx, s, sessionID, AggItemCandidates, q, []string{string(key)},
		func(pos *session.POSInput) ([]string, error) {
			return analytics.ItemCandidates(pos.Dataset.Items, q, key)
		})
}

// DepartmentCandidates lists the distinct departments
func (s *AnalyticsService) DepartmentCandidates(ctx context.Context, sessionID string, q analytics.Query) ([]string, error) {
	return aggregate(ctx, s, sessionID, AggDeptCandidates, q, nil,
		func(pos *session.POSInput) ([]string, error) {
			return analytics.DepartmentCandidates(pos.Dataset.Items, q), nil
		})
}

// aggregate resolves the session's POS input and runs fn through the memo
func aggregate[T any](ctx context.Context, s *AnalyticsService, sessionID, kind string, q analytics.Query, params []string, fn func(*session.POSInput) (T, error)) (T, error) {
	var zero T

	if !q.Hours.Valid() {
		return zero, invalidQuery("unsupported business hours "+string(q.Hours), nil)
	}
	if q.Store != "" && !q.Store.Valid() {
		return zero, invalidQuery("unsupported store "+string(q.Store), nil)
	}

	sess, err := s.resolve(sessionID)
	if err != nil {
		return zero, err
	}
	pos := sess.State().POS
	if pos == nil {
		return zero, missingInputs(kind, []string{session.InputPOS}, ErrNoPOSData)
	}

	start := time.Now()
	defer func() { s.metrics.RecordAggregation(ctx, kind, time.Since(start)) }()

	parts := append([]string{kind, pos.Digest}, queryParts(q)...)
	key := session.KeyOf(append(parts, params...)...)
	out, err := session.Remember(ctx, sess.Memo(), kind, key, func() (T, error) {
		return fn(pos)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "aggregation failed",
			slog.String("kind", kind),
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return zero, invalidQuery(kind, err)
	}
	return out, nil
}

func queryParts(q analytics.Query) []string {
	return []string{dateKey(q.From), dateKey(q.To), string(q.Hours), string(q.Store)}
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

package forecast

import (
	"math"
	"sort"
	"time"

	"poscope/internal/analytics"
	apperrors "poscope/internal/errors"
	"poscope/pkg/contracts/domain"
)

// FeatureNames lists the regressors in model order, after the intercept
var FeatureNames = []string{"attendance", "week_of_term", "holiday", "replaced", "first_week", "last_week"}

// User-facing messages of the forecast actions
const (
	MsgNoLabel       = "選択した店舗・営業時間の客数データがありません。"
	MsgNoFeatures    = "カレンダー形式データと履修者数データから利用できる日がありません。"
	MsgNoOverlap     = "POSデータとカレンダー形式データの期間が重なっていません。"
	MsgTooFewRows    = "学習に必要なデータが不足しています。"
	MsgNoPredictable = "予測対象の日がカレンダー形式データにありません。"
	MsgNotPrepared   = "条件を決定してください。"
	MsgNotTrained    = "先に学習してください。"
	MsgModelMismatch = "モデルの店舗・営業時間が選択中の条件と一致しません。"
)

// Sample is one dated feature row with an optional label
type Sample struct {
	Day       domain.CalendarFeatures
	Customers float64
}

// Vector returns the regressors of the sample in FeatureNames order
func (s Sample) Vector() []float64 {
	return []float64{
		float64(s.Day.Attendance),
		float64(s.Day.WeekOfTerm),
		float64(s.Day.Holiday),
		float64(s.Day.Replaced),
		float64(s.Day.FirstWeek),
		float64(s.Day.LastWeek),
	}
}

// Dataset is the joined label and feature set of one selection
type Dataset struct {
	Selection   domain.ForecastSelection
	Trainable   []Sample
	Predictable []Sample
	// DroppedDays counts label days without customers, which have no logarithm
	DroppedDays int
}

// LabelQuery selects the visits labelling a forecast
func LabelQuery(sel domain.ForecastSelection) analytics.Query {
	return analytics.Query{Hours: sel.Hours, Store: domain.StoreFilter(sel.Store)}
}

// BuildDataset joins daily customer totals with usable calendar features.
// Trainable rows have both; predictable rows are feature dates after the
// last trainable date.
func BuildDataset(sel domain.ForecastSelection, labels []analytics.DailyCount, features []domain.CalendarFeatures) (*Dataset, error) {
	ds := &Dataset{Selection: sel}

	byDate := make(map[time.Time]float64, len(labels))
	for _, l := range labels {
		if l.Customers <= 0 || math.IsNaN(l.Customers) {
			ds.DroppedDays++
			continue
		}
		byDate[domain.DateOf(l.Date)] = l.Customers
	}
	if len(byDate) == 0 {
		return nil, apperrors.NewEmptyDatasetError("no positive daily customer totals", MsgNoLabel)
	}
	if len(features) == 0 {
		return nil, apperrors.NewEmptyDatasetError("no usable calendar features", MsgNoFeatures)
	}

	sorted := append([]domain.CalendarFeatures(nil), features...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var last time.Time
	for _, f := range sorted {
		if c, ok := byDate[domain.DateOf(f.Date)]; ok {
			ds.Trainable = append(ds.Trainable, Sample{Day: f, Customers: c})
			last = f.Date
		}
	}
	if len(ds.Trainable) == 0 {
		return nil, apperrors.NewEmptyDatasetError("labels and features do not overlap", MsgNoOverlap)
	}

	for _, f := range sorted {
		if f.Date.After(last) {
			ds.Predictable = append(ds.Predictable, Sample{Day: f, Customers: math.NaN()})
		}
	}
	return ds, nil
}

// Split divides the trainable rows chronologically. The validation part
// holds ceil(ratio*n) rows.
func (d *Dataset) Split(ratio float64) (fit, validation []Sample) {
	n := len(d.Trainable)
	nTest := int(math.Ceil(ratio * float64(n)))
	if nTest > n {
		nTest = n
	}
	return d.Trainable[:n-nTest], d.Trainable[n-nTest:]
}

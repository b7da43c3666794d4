package analytics

import (
	"fmt"
	"time"

	"poscope/pkg/contracts/domain"
)

// Column headers of the payment-method table
const (
	ColPaymentMethod = "支払い方法"
	ColCount         = "カウント"
	ColDate          = "日付"
	ColTime          = "時間"
)

// Spans accepted by CustomersByTimeOfDay, in minutes
var Spans = []int{5, 10, 30}

// ValidSpan reports whether minutes is an accepted bucket width
func ValidSpan(minutes int) bool {
	for _, s := range Spans {
		if s == minutes {
			return true
		}
	}
	return false
}

// TimeOfDayResult holds customer counts per bucket (rows) and date (columns)
type TimeOfDayResult struct {
	Table *domain.Table `json:"table"`
	// Average is the per-bucket mean over weekday dates with any customers
	Average []domain.Number `json:"average,omitempty"`
	// Excluded lists weekend and all-zero dates left out of Average
	Excluded []string `json:"excluded,omitempty"`
}

// CustomersByTimeOfDay buckets customer counts of a single store. Buckets are
// labelled by their start and kept when the label lies in the hours window.
// Every date between the first and last matching visit gets a column.
func CustomersByTimeOfDay(visits []domain.CustomerVisit, q Query, spanMinutes int) (*TimeOfDayResult, error) {
	if !ValidSpan(spanMinutes) {
		return nil, fmt.Errorf("unsupported span %d", spanMinutes)
	}
	if q.Store == domain.StoreFilterBoth || q.Store == "" {
		return nil, fmt.Errorf("time-of-day counts need a single store")
	}

	result := &TimeOfDayResult{Table: domain.NewTable("customers_by_time", ColTime)}
	start, end, ok := q.Hours.Window()
	if !ok {
		return result, nil
	}

	span := time.Duration(spanMinutes) * time.Minute
	var buckets []time.Duration
	for b := start - start%span; b <= end; b += span {
		if b >= start {
			buckets = append(buckets, b)
		}
	}
	bucketIndex := make(map[time.Duration]int, len(buckets))
	for i, b := range buckets {
		bucketIndex[b] = i
	}

	// rows are bucketed before the hours window applies, so the last bucket
	// holds every visit up to its end
	rows := make([]domain.CustomerVisit, 0)
	for _, v := range visits {
		if !q.Store.Matches(v.Store) || !q.inDates(v.OpenedAt) {
			continue
		}
		tod := domain.TimeOfDay(v.OpenedAt)
		if _, ok := bucketIndex[tod-tod%span]; ok {
			rows = append(rows, v)
		}
	}
	if len(rows) == 0 {
		return result, nil
	}

	first, last := rows[0].OpenedAt, rows[0].OpenedAt
	for _, v := range rows {
		if v.OpenedAt.Before(first) {
			first = v.OpenedAt
		}
		if v.OpenedAt.After(last) {
			last = v.OpenedAt
		}
	}
	dates := dateRange(first, last)
	dateIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIndex[d] = i
	}

	counts := make([][]float64, len(buckets))
	for i := range counts {
		counts[i] = make([]float64, len(dates))
	}
	for _, v := range rows {
		tod := domain.TimeOfDay(v.OpenedAt)
		counts[bucketIndex[tod-tod%span]][dateIndex[domain.DateOf(v.OpenedAt)]] += float64(v.Customers)
	}

	for _, d := range dates {
		result.Table.Columns = append(result.Table.Columns, d.Format(dateLabel))
	}
	for i, b := range buckets {
		values := make([]domain.Number, len(dates))
		for j := range dates {
			values[j] = domain.Number(counts[i][j])
		}
		result.Table.AppendRow(clockLabel(b), values...)
	}

	var included []int
	for j, d := range dates {
		total := 0.0
		for i := range buckets {
			total += counts[i][j]
		}
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday || total == 0 {
			result.Excluded = append(result.Excluded, d.Format(dateLabel))
			continue
		}
		included = append(included, j)
	}
	if len(included) > 0 {
		result.Average = make([]domain.Number, len(buckets))
		for i := range buckets {
			sum := 0.0
			for _, j := range included {
				sum += counts[i][j]
			}
			result.Average[i] = domain.Number(sum / float64(len(included)))
		}
	}

	return result, nil
}

func clockLabel(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// CustomersPerDay totals customers per open date with one column per store.
// Each store's column is filled with zeros between its own first and last
// date; dates outside a store's range are NaN.
func CustomersPerDay(visits []domain.CustomerVisit, q Query) *domain.Table {
	rows := FilterVisits(visits, q)
	return dailyByStore("customers_per_day", len(rows), func(i int) (domain.Store, time.Time, float64) {
		v := rows[i]
		return v.Store, v.OpenedAt, float64(v.Customers)
	})
}

// PaymentMethodRatios weights every payment-method count by the visit's
// customer count. Totals may exceed the number of customers when a visit
// used several methods.
func PaymentMethodRatios(visits []domain.CustomerVisit, methods []domain.PaymentMethod, q Query) *domain.Table {
	rows := FilterVisits(visits, q)
	table := domain.NewTable("payment_methods", ColPaymentMethod, ColCount)
	if len(rows) == 0 {
		return table
	}

	totals := make(map[domain.PaymentMethod]float64, len(methods))
	for _, v := range rows {
		for m, n := range v.Payments {
			totals[m] += float64(n * v.Customers)
		}
	}
	for _, m := range methods {
		table.AppendRow(string(m), domain.Number(totals[m]))
	}
	return table
}

// DailyCount is one day's customer total
type DailyCount struct {
	Date      time.Time
	Customers float64
}

// DailyCustomers totals customers per open date for the forecast label.
// Days without visits between the first and last visit are reported as zero.
func DailyCustomers(visits []domain.CustomerVisit, q Query) []DailyCount {
	rows := FilterVisits(visits, q)
	if len(rows) == 0 {
		return nil
	}
	totals := make(map[time.Time]float64)
	first, last := rows[0].OpenedAt, rows[0].OpenedAt
	for _, v := range rows {
		totals[domain.DateOf(v.OpenedAt)] += float64(v.Customers)
		if v.OpenedAt.Before(first) {
			first = v.OpenedAt
		}
		if v.OpenedAt.After(last) {
			last = v.OpenedAt
		}
	}
	dates := dateRange(first, last)
	out := make([]DailyCount, len(dates))
	for i, d := range dates {
		out[i] = DailyCount{Date: d, Customers: totals[d]}
	}
	return out
}

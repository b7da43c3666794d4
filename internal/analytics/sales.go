package analytics

import (
	"fmt"
	"sort"
	"time"

	"poscope/pkg/contracts/domain"
)

// ItemKey selects the item field matched against a value
type ItemKey string

const (
	ItemByName    ItemKey = "name"
	ItemByBarcode ItemKey = "barcode"
	ItemBySKU     ItemKey = "sku"
)

// Valid reports whether k is a known key
func (k ItemKey) Valid() bool {
	return k == ItemByName || k == ItemByBarcode || k == ItemBySKU
}

func (k ItemKey) of(it domain.ItemSale) string {
	switch k {
	case ItemByBarcode:
		return it.Barcode
	case ItemBySKU:
		return it.SKU
	}
	return it.Name
}

// Measure selects the summed item field
type Measure string

const (
	MeasureQuantity Measure = "quantity"
	MeasureAmount   Measure = "amount"
)

// Valid reports whether m is a known measure
func (m Measure) Valid() bool {
	return m == MeasureQuantity || m == MeasureAmount
}

func (m Measure) of(it domain.ItemSale) float64 {
	if m == MeasureAmount {
		return float64(it.Amount)
	}
	return float64(it.Quantity)
}

// SalesByItem totals one item per open date and store
func SalesByItem(items []domain.ItemSale, q Query, key ItemKey, value string, measure Measure) (*domain.Table, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("unsupported item key %q", key)
	}
	if !measure.Valid() {
		return nil, fmt.Errorf("unsupported measure %q", measure)
	}
	rows := selectItems(FilterItems(items, q), func(it domain.ItemSale) bool { return key.of(it) == value })
	return dailyItems("sales_by_item", rows, measure), nil
}

// SalesByDepartment totals one department per open date and store
func SalesByDepartment(items []domain.ItemSale, q Query, department string, measure Measure) (*domain.Table, error) {
	if !measure.Valid() {
		return nil, fmt.Errorf("unsupported measure %q", measure)
	}
	rows := selectItems(FilterItems(items, q), func(it domain.ItemSale) bool { return it.Department == department })
	return dailyItems("sales_by_department", rows, measure), nil
}

// DailySupply totals item quantities per open date and store
func DailySupply(items []domain.ItemSale, q Query) *domain.Table {
	return dailyItems("daily_supply", FilterItems(items, q), MeasureQuantity)
}

// ItemCandidates lists the distinct values of key among the matching items
func ItemCandidates(items []domain.ItemSale, q Query, key ItemKey) ([]string, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("unsupported item key %q", key)
	}
	return distinct(FilterItems(items, q), key.of), nil
}

// DepartmentCandidates lists the distinct departments among the matching items
func DepartmentCandidates(items []domain.ItemSale, q Query) []string {
	return distinct(FilterItems(items, q), func(it domain.ItemSale) string { return it.Department })
}

func selectItems(items []domain.ItemSale, keep func(domain.ItemSale) bool) []domain.ItemSale {
	out := make([]domain.ItemSale, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func distinct(items []domain.ItemSale, field func(domain.ItemSale) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, it := range items {
		v := field(it)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func dailyItems(name string, rows []domain.ItemSale, measure Measure) *domain.Table {
	return dailyByStore(name, len(rows), func(i int) (domain.Store, time.Time, float64) {
		it := rows[i]
		return it.Store, it.OpenedAt, measure.of(it)
	})
}

// dailyByStore resamples n rows to daily totals per store. A store's column
// is contiguous between its own first and last date; other dates are NaN.
func dailyByStore(name string, n int, row func(i int) (domain.Store, time.Time, float64)) *domain.Table {
	table := domain.NewTable(name, ColDate)
	if n == 0 {
		return table
	}

	type storeSeries struct {
		first, last time.Time
		totals      map[time.Time]float64
	}
	series := make(map[domain.Store]*storeSeries)
	var first, last time.Time
	for i := 0; i < n; i++ {
		store, at, v := row(i)
		d := domain.DateOf(at)
		s, ok := series[store]
		if !ok {
			s = &storeSeries{first: d, last: d, totals: make(map[time.Time]float64)}
			series[store] = s
		}
		s.totals[d] += v
		if d.Before(s.first) {
			s.first = d
		}
		if d.After(s.last) {
			s.last = d
		}
		if i == 0 || d.Before(first) {
			first = d
		}
		if i == 0 || d.After(last) {
			last = d
		}
	}

	var stores []domain.Store
	for _, s := range domain.Stores {
		if _, ok := series[s]; ok {
			stores = append(stores, s)
			table.Columns = append(table.Columns, s.DisplayName())
		}
	}

	for _, d := range dateRange(first, last) {
		values := make([]domain.Number, len(stores))
		for i, store := range stores {
			s := series[store]
			if d.Before(s.first) || d.After(s.last) {
				values[i] = domain.NaN()
				continue
			}
			values[i] = domain.Number(s.totals[d])
		}
		table.AppendRow(d.Format(dateLabel), values...)
	}
	return table
}

package analytics

import (
	"time"

	"poscope/pkg/contracts/domain"
)

// Query selects rows by open date, time of day and store
type Query struct {
	From  time.Time            `json:"from" validate:"required"`
	To    time.Time            `json:"to" validate:"required,gtefield=From"`
	Hours domain.BusinessHours `json:"hours" validate:"required,oneof=midday evening both"`
	Store domain.StoreFilter   `json:"store" validate:"omitempty,oneof=west east both"`
}

// bounds returns the half-open date range [From, To+1 day)
func (q Query) bounds() (time.Time, time.Time) {
	return domain.DateOf(q.From), domain.DateOf(q.To).AddDate(0, 0, 1)
}

// inWindow reports whether the open timestamp t passes the date and hours
// predicates
func (q Query) inWindow(t time.Time) bool {
	return q.inDates(t) && q.inHours(domain.TimeOfDay(t))
}

// inDates applies the date range alone. A zero From or To leaves that side
// unbounded.
func (q Query) inDates(t time.Time) bool {
	from, to := q.bounds()
	if !q.From.IsZero() && t.Before(from) {
		return false
	}
	return q.To.IsZero() || t.Before(to)
}

func (q Query) inHours(tod time.Duration) bool {
	start, end, ok := q.Hours.Window()
	if !ok {
		return false
	}
	return tod >= start && tod <= end
}

// FilterVisits returns the visits whose open timestamp falls inside the query.
// An empty input yields an empty, non-nil slice.
func FilterVisits(visits []domain.CustomerVisit, q Query) []domain.CustomerVisit {
	out := make([]domain.CustomerVisit, 0)
	for _, v := range visits {
		if q.Store.Matches(v.Store) && q.inWindow(v.OpenedAt) {
			out = append(out, v)
		}
	}
	return out
}

// FilterItems is FilterVisits for item sales
func FilterItems(items []domain.ItemSale, q Query) []domain.ItemSale {
	out := make([]domain.ItemSale, 0)
	for _, it := range items {
		if q.Store.Matches(it.Store) && q.inWindow(it.OpenedAt) {
			out = append(out, it)
		}
	}
	return out
}

// dateRange lists every date from first to last inclusive
func dateRange(first, last time.Time) []time.Time {
	var out []time.Time
	for d := domain.DateOf(first); !d.After(domain.DateOf(last)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

const dateLabel = "2006-01-02"

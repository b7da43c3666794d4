package domain

import (
	"fmt"
	"strings"
	"time"
)

// Store identifies one of the two cafeteria registers
type Store string

const (
	StoreWest Store = "west"
	StoreEast Store = "east"
)

// Stores lists the known stores in display order
var Stores = []Store{StoreWest, StoreEast}

// DisplayName returns the Japanese store name used in reports
func (s Store) DisplayName() string {
	switch s {
	case StoreWest:
		return "西食堂"
	case StoreEast:
		return "東カフェテリア"
	default:
		return string(s)
	}
}

// CampusName returns the Japanese campus name used for syllabus data
func (s Store) CampusName() string {
	switch s {
	case StoreWest:
		return "西キャンパス"
	case StoreEast:
		return "東キャンパス"
	default:
		return string(s)
	}
}

// SheetName returns the syllabus workbook sheet holding this campus
func (s Store) SheetName() string {
	return string(s)
}

// Valid reports whether s is a known store
func (s Store) Valid() bool {
	return s == StoreWest || s == StoreEast
}

// ParseStore accepts either the canonical code or the Japanese display name
func ParseStore(v string) (Store, error) {
	v = strings.TrimSpace(v)
	for _, s := range Stores {
		if strings.EqualFold(v, string(s)) || v == s.DisplayName() {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown store %q", v)
}

// StoreFilter selects a single store or both stores
type StoreFilter string

const (
	StoreFilterWest StoreFilter = "west"
	StoreFilterEast StoreFilter = "east"
	StoreFilterBoth StoreFilter = "both"
)

// Matches reports whether rows of store s pass the filter
func (f StoreFilter) Matches(s Store) bool {
	if f == StoreFilterBoth || f == "" {
		return true
	}
	return Store(f) == s
}

// Valid reports whether f is a known filter value
func (f StoreFilter) Valid() bool {
	switch f {
	case StoreFilterWest, StoreFilterEast, StoreFilterBoth:
		return true
	}
	return false
}

// BusinessHours selects a service period of the day
type BusinessHours string

const (
	HoursMidday  BusinessHours = "midday"
	HoursEvening BusinessHours = "evening"
	HoursBoth    BusinessHours = "both"
)

// Window returns the inclusive time-of-day bounds as offsets from midnight
func (h BusinessHours) Window() (start, end time.Duration, ok bool) {
	switch h {
	case HoursMidday:
		return clock(11, 0), clock(14, 0), true
	case HoursEvening:
		return clock(17, 30), clock(19, 30), true
	case HoursBoth:
		return clock(11, 0), clock(19, 30), true
	}
	return 0, 0, false
}

// Label returns the Japanese label shown next to a selection
func (h BusinessHours) Label() string {
	switch h {
	case HoursMidday:
		return "昼（11:00～14:00）"
	case HoursEvening:
		return "夜（17:30～19:30）"
	case HoursBoth:
		return "昼・夜（11:00～19:30）"
	}
	return string(h)
}

// Valid reports whether h is a known selector
func (h BusinessHours) Valid() bool {
	_, _, ok := h.Window()
	return ok
}

func clock(h, m int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

// TimeOfDay returns the offset of t from its own midnight
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// DateOf truncates t to its calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

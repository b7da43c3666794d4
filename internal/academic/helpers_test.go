package academic

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"poscope/pkg/contracts/domain"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

// weekdayClass gives Monday to Friday their own timetable and weekends none
func weekdayClass(d time.Time) domain.ClassCode {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return domain.ClassNone
	}
	return scheduleWeekdays[int(d.Weekday())-1]
}

func noClass(time.Time) domain.ClassCode {
	return domain.ClassNone
}

// span builds one calendar row per date from from to to inclusive
func span(t *testing.T, from, to string, year int, term domain.TermCode, class func(time.Time) domain.ClassCode) []domain.CalendarDay {
	t.Helper()
	var days []domain.CalendarDay
	for d := date(t, from); !d.After(date(t, to)); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.CalendarDay{
			Date:         d,
			AcademicYear: year,
			Term:         term,
			Class:        class(d),
		})
	}
	return days
}

func calendarOf(segments ...[]domain.CalendarDay) *domain.Calendar {
	cal := &domain.Calendar{}
	for _, s := range segments {
		cal.Days = append(cal.Days, s...)
	}
	return cal
}

func featureOn(t *testing.T, rows []domain.CalendarFeatures, day string) domain.CalendarFeatures {
	t.Helper()
	d := date(t, day)
	for _, r := range rows {
		if r.Date.Equal(d) {
			return r
		}
	}
	t.Fatalf("no feature row for %s", day)
	return domain.CalendarFeatures{}
}

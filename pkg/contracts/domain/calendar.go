package domain

import (
	"strings"
	"time"
)

// TermCode is an academic term or intersession code
type TermCode string

const (
	TermSpring TermCode = "SPR"
	TermSummer TermCode = "SMR"
	TermAutumn TermCode = "AUT"
	TermWinter TermCode = "WTR"

	// intersession codes carry the preceding term as prefix
	vacationSuffix = "VAC"
)

// TeachingTerms lists the four main terms in academic order
var TeachingTerms = []TermCode{TermSpring, TermSummer, TermAutumn, TermWinter}

// Ordinal returns the position of a teaching term within the academic year,
// or -1 for anything else
func (t TermCode) Ordinal() int {
	for i, tt := range TeachingTerms {
		if t == tt {
			return i
		}
	}
	return -1
}

// IsTeaching reports whether t is one of the four main terms
func (t TermCode) IsTeaching() bool {
	return t.Ordinal() >= 0
}

// IsIntersession reports whether t is a vacation variant such as SPRVAC
func (t TermCode) IsIntersession() bool {
	s := string(t)
	if !strings.HasSuffix(s, vacationSuffix) {
		return false
	}
	return TermCode(strings.TrimSuffix(s, vacationSuffix)).IsTeaching()
}

// Recognized reports whether t is a teaching term or an intersession
func (t TermCode) Recognized() bool {
	return t.IsTeaching() || t.IsIntersession()
}

// ClassCode is the timetable a calendar day follows
type ClassCode string

const (
	ClassMonday    ClassCode = "MON"
	ClassTuesday   ClassCode = "TUE"
	ClassWednesday ClassCode = "WED"
	ClassThursday  ClassCode = "THU"
	ClassFriday    ClassCode = "FRI"
	ClassNone      ClassCode = "NoClass"
)

var classWeekdays = map[ClassCode]time.Weekday{
	ClassMonday:    time.Monday,
	ClassTuesday:   time.Tuesday,
	ClassWednesday: time.Wednesday,
	ClassThursday:  time.Thursday,
	ClassFriday:    time.Friday,
}

// Weekday returns the weekday whose timetable the code follows
func (c ClassCode) Weekday() (time.Weekday, bool) {
	wd, ok := classWeekdays[c]
	return wd, ok
}

// HasClasses reports whether any timetable applies
func (c ClassCode) HasClasses() bool {
	_, ok := classWeekdays[c]
	return ok
}

// CalendarDay is one row of the academic calendar
type CalendarDay struct {
	Date         time.Time `json:"date"`
	AcademicYear int       `json:"academic_year"`
	Term         TermCode  `json:"term"`
	Class        ClassCode `json:"class"`
	Info         string    `json:"info,omitempty"`
}

// Active reports whether the day is a class day of a recognized term
func (d CalendarDay) Active() bool {
	return d.Class != ClassNone && d.Class != "" && d.Term.Recognized()
}

// CalendarFeatures is a calendar day enriched with regression features
type CalendarFeatures struct {
	CalendarDay
	WeekOfTerm Number `json:"week_of_term"`
	Holiday    int    `json:"holiday"`
	Replaced   int    `json:"replaced"`
	FirstWeek  int    `json:"first_week"`
	LastWeek   int    `json:"last_week"`
	Attendance Number `json:"attendance"`
}

// Calendar is the uploaded academic calendar ordered by date
type Calendar struct {
	Days []CalendarDay `json:"days"`
}

// Range returns the first and last dates of the calendar
func (c *Calendar) Range() (DateRange, bool) {
	if c == nil || len(c.Days) == 0 {
		return DateRange{}, false
	}
	return DateRange{From: c.Days[0].Date, To: c.Days[len(c.Days)-1].Date}, true
}

package academic

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"poscope/internal/config"
	"poscope/pkg/contracts/domain"
)

// LastWeekRule decides which week of a term is flagged as its last.
// Terms without an override use Default.
type LastWeekRule struct {
	Default int
	PerTerm map[domain.TermCode]int
}

// For returns the last week of a term
func (r LastWeekRule) For(term domain.TermCode) int {
	if w, ok := r.PerTerm[term]; ok {
		return w
	}
	return r.Default
}

// FeatureOptions controls feature derivation
type FeatureOptions struct {
	HolidayMarker  string
	ReplacedMarker string
	LastWeek       LastWeekRule
	// Periods are summed per weekday for the attendance figure
	Periods []int
	// Continuations maps a term to the term that keeps its week anchor
	Continuations map[domain.TermCode]domain.TermCode
}

// DefaultFeatureOptions returns the options of the default configuration
func DefaultFeatureOptions() FeatureOptions {
	opts, _ := OptionsFromConfig(config.Default().Features)
	return opts
}

// OptionsFromConfig converts the features section of the configuration
func OptionsFromConfig(cfg config.FeaturesConfig) (FeatureOptions, error) {
	opts := FeatureOptions{
		HolidayMarker:  cfg.HolidayMarker,
		ReplacedMarker: cfg.ReplacedMarker,
		LastWeek:       LastWeekRule{Default: cfg.LastWeek},
		Periods:        append([]int(nil), cfg.AttendancePeriods...),
		Continuations:  make(map[domain.TermCode]domain.TermCode, len(cfg.Continuations)),
	}

	if len(cfg.LastWeekByTerm) > 0 {
		opts.LastWeek.PerTerm = make(map[domain.TermCode]int, len(cfg.LastWeekByTerm))
		for term, week := range cfg.LastWeekByTerm {
			code := domain.TermCode(strings.ToUpper(strings.TrimSpace(term)))
			if !code.Recognized() {
				return FeatureOptions{}, fmt.Errorf("last week override for unknown term %q", term)
			}
			opts.LastWeek.PerTerm[code] = week
		}
	}

	for from, to := range cfg.Continuations {
		f := domain.TermCode(strings.ToUpper(strings.TrimSpace(from)))
		t := domain.TermCode(strings.ToUpper(strings.TrimSpace(to)))
		if !f.IsTeaching() || !t.IsTeaching() {
			return FeatureOptions{}, fmt.Errorf("invalid term continuation %s:%s", from, to)
		}
		opts.Continuations[f] = t
	}

	for _, p := range opts.Periods {
		if p < 1 {
			return FeatureOptions{}, fmt.Errorf("invalid attendance period %d", p)
		}
	}
	return opts, nil
}

// FeatureBuilder derives regression features from the calendar and a syllabus table
type FeatureBuilder struct {
	opts   FeatureOptions
	logger *slog.Logger
}

// NewFeatureBuilder creates a builder
func NewFeatureBuilder(opts FeatureOptions, logger *slog.Logger) *FeatureBuilder {
	return &FeatureBuilder{
		opts:   opts,
		logger: logger.With(slog.String("component", "calendar_features")),
	}
}

// Options returns the options the builder was created with
func (b *FeatureBuilder) Options() FeatureOptions {
	return b.opts
}

type termKey struct {
	year int
	term domain.TermCode
}

// weekTracker assigns week-of-term numbers to calendar rows in date order
type weekTracker struct {
	continuations map[domain.TermCode]domain.TermCode
	current       termKey
	anchor        time.Time
	started       bool
	// term codes of the rows seen since the last active row
	between map[domain.TermCode]struct{}
}

func newWeekTracker(continuations map[domain.TermCode]domain.TermCode) *weekTracker {
	return &weekTracker{
		continuations: continuations,
		between:       make(map[domain.TermCode]struct{}),
	}
}

func (w *weekTracker) next(day domain.CalendarDay) domain.Number {
	if !day.Active() {
		w.between[day.Term] = struct{}{}
		return domain.NaN()
	}

	key := termKey{year: day.AcademicYear, term: day.Term}
	if !w.started || key != w.current {
		if !w.started || !w.continues(key) {
			w.anchor = mondayOf(day.Date)
		}
		w.current = key
		w.started = true
	}
	for k := range w.between {
		delete(w.between, k)
	}

	days := int(day.Date.Sub(w.anchor) / (24 * time.Hour))
	return domain.Number(days/7 + 1)
}

// continues reports whether entering key keeps the running anchor: the pair
// must be a configured continuation within one academic year, and no row of
// a third term code may lie between them.
func (w *weekTracker) continues(key termKey) bool {
	if key.year != w.current.year {
		return false
	}
	if to, ok := w.continuations[w.current.term]; !ok || to != key.term {
		return false
	}
	for t := range w.between {
		if t != w.current.term && t != key.term {
			return false
		}
	}
	return true
}

func mondayOf(t time.Time) time.Time {
	d := domain.DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Build computes features for every calendar row. syllabus may be nil, in
// which case every attendance figure is NaN.
func (b *FeatureBuilder) Build(cal *domain.Calendar, syllabus *domain.SyllabusTable) []domain.CalendarFeatures {
	if cal == nil {
		return nil
	}

	tracker := newWeekTracker(b.opts.Continuations)
	out := make([]domain.CalendarFeatures, 0, len(cal.Days))
	for _, day := range cal.Days {
		f := domain.CalendarFeatures{CalendarDay: day}
		f.WeekOfTerm = tracker.next(day)
		f.Holiday = flag(b.opts.HolidayMarker != "" && strings.Contains(day.Info, b.opts.HolidayMarker))
		f.Replaced = flag(b.opts.ReplacedMarker != "" && strings.Contains(day.Info, b.opts.ReplacedMarker))
		if !f.WeekOfTerm.IsNaN() {
			week := int(f.WeekOfTerm)
			f.FirstWeek = flag(week == 1)
			f.LastWeek = flag(week == b.opts.LastWeek.For(day.Term))
		}
		f.Attendance = b.attendance(day, syllabus)
		out = append(out, f)
	}

	b.logger.Debug("built calendar features",
		slog.Int("rows", len(out)),
		slog.Int("usable", len(Usable(out))))
	return out
}

func (b *FeatureBuilder) attendance(day domain.CalendarDay, syllabus *domain.SyllabusTable) domain.Number {
	wd, ok := day.Class.Weekday()
	if !ok || !day.Term.IsTeaching() || syllabus == nil {
		return domain.NaN()
	}
	label := domain.TermLabel{Year: day.AcademicYear, Term: day.Term}.String()
	return domain.Number(syllabus.Sum(label, wd, b.opts.Periods))
}

// Usable keeps weekday-scheduled rows that have an attendance figure
func Usable(rows []domain.CalendarFeatures) []domain.CalendarFeatures {
	out := make([]domain.CalendarFeatures, 0, len(rows))
	for _, r := range rows {
		if r.Class.HasClasses() && !r.Attendance.IsNaN() && !math.IsInf(float64(r.Attendance), 0) {
			out = append(out, r)
		}
	}
	return out
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r LastWeekRule) String() string {
	if len(r.PerTerm) == 0 {
		return fmt.Sprintf("week %d", r.Default)
	}
	return fmt.Sprintf("week %d, overrides %v", r.Default, r.PerTerm)
}

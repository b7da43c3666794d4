package session

import (
	"log/slog"
	"sync"
	"time"

	"poscope/internal/academic"
	"poscope/internal/dataprocessing"
	"poscope/internal/forecast"
	"poscope/pkg/contracts/domain"
)

// Input names as shown to users when an input is missing
const (
	InputPOS      = "POSデータ"
	InputSyllabus = "履修者数データ"
	InputCalendar = "カレンダー形式データ"
)

// POSInput is an accepted POS upload
type POSInput struct {
	Dataset *domain.POSDataset
	Report  *dataprocessing.Report
	Digest  string
}

// SyllabusInput is an accepted syllabus workbook
type SyllabusInput struct {
	Name     string
	Syllabus *domain.Syllabus
	Ranges   *academic.SyllabusRanges
	Digest   string
}

// CalendarInput is an accepted calendar file
type CalendarInput struct {
	Name     string
	Calendar *domain.Calendar
	Digest   string
}

// AppState holds the inputs of a session. Inputs are replaced, never
// mutated, so a copy can be read without holding the session lock.
type AppState struct {
	POS      *POSInput
	Syllabus *SyllabusInput
	Calendar *CalendarInput
	// Revision increases with every accepted upload
	Revision int
}

// Missing lists the inputs still required for forecasting
func (st AppState) Missing() []string {
	missing := []string{}
	if st.POS == nil {
		missing = append(missing, InputPOS)
	}
	if st.Syllabus == nil {
		missing = append(missing, InputSyllabus)
	}
	if st.Calendar == nil {
		missing = append(missing, InputCalendar)
	}
	return missing
}

// Ready reports whether every forecasting input is present
func (st AppState) Ready() bool {
	return len(st.Missing()) == 0
}

// Session is one user's isolated analysis workspace
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	state      AppState
	engine     *forecast.Engine
	memo       *Memo
	logger     *slog.Logger
}

func newSession(id string, now time.Time, engine *forecast.Engine, memo *Memo, logger *slog.Logger) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastAccess: now,
		engine:     engine,
		memo:       memo,
		logger:     logger.With(slog.String("session_id", id)),
	}
}

// State returns a copy of the current inputs
func (s *Session) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Memo returns the session's derived-result cache
func (s *Session) Memo() *Memo {
	return s.memo
}

// SetPOS replaces the POS dataset and invalidates derived state
func (s *Session) SetPOS(in POSInput) {
	s.replace(InputPOS, func(st *AppState) { st.POS = &in })
}

// SetSyllabus replaces the syllabus and invalidates derived state
func (s *Session) SetSyllabus(in SyllabusInput) {
	s.replace(InputSyllabus, func(st *AppState) { st.Syllabus = &in })
}

// SetCalendar replaces the calendar and invalidates derived state
func (s *Session) SetCalendar(in CalendarInput) {
	s.replace(InputCalendar, func(st *AppState) { st.Calendar = &in })
}

func (s *Session) replace(input string, apply func(*AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply(&s.state)
	s.state.Revision++
	s.engine.Invalidate()
	s.memo.Clear()
	s.logger.Info("session input replaced",
		slog.String("input", input),
		slog.Int("revision", s.state.Revision))
}

// Forecast runs fn with exclusive access to the forecast engine
func (s *Session) Forecast(fn func(st AppState, e *forecast.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state, s.engine)
}

// ForecastStatus returns the engine summary
func (s *Session) ForecastStatus() domain.ForecastStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Status()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess) > ttl
}

// LastAccess returns when the session was last used
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

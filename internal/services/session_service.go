package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"poscope/internal/academic"
	"poscope/internal/dataprocessing"
	apperrors "poscope/internal/errors"
	"poscope/internal/session"
	"poscope/pkg/contracts/domain"
)

// StoreSummary describes the uploaded date range of one store
type StoreSummary struct {
	Store   domain.Store      `json:"store"`
	Name    string            `json:"name"`
	Range   *domain.DateRange `json:"range,omitempty"`
	Message string            `json:"message,omitempty"`
}

// POSSummary is the outcome of an accepted POS upload
type POSSummary struct {
	Archives          int                       `json:"archives"`
	DuplicateArchives []string                  `json:"duplicate_archives,omitempty"`
	SkippedFiles      []string                  `json:"skipped_files,omitempty"`
	Stores            []StoreSummary            `json:"stores"`
	PaymentMethods    []domain.PaymentMethod    `json:"payment_methods"`
	Stats             dataprocessing.CleanStats `json:"stats"`
}

// SyllabusSummary is the outcome of an accepted syllabus upload
type SyllabusSummary struct {
	Name   string                  `json:"name"`
	Ranges academic.SyllabusRanges `json:"ranges"`
}

// CalendarSummary is the outcome of an accepted calendar upload
type CalendarSummary struct {
	Name  string            `json:"name"`
	Days  int               `json:"days"`
	Range *domain.DateRange `json:"range,omitempty"`
}

// SessionSummary reports the inputs and forecast state of a session
type SessionSummary struct {
	ID         string                `json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	LastAccess time.Time             `json:"last_access"`
	Revision   int                   `json:"revision"`
	POS        *POSSummary           `json:"pos,omitempty"`
	Syllabus   *SyllabusSummary      `json:"syllabus,omitempty"`
	Calendar   *CalendarSummary      `json:"calendar,omitempty"`
	Missing    []string              `json:"missing"`
	Forecast   domain.ForecastStatus `json:"forecast"`
}

// sessionResolver maps session ids to live sessions with user-facing errors
type sessionResolver struct {
	store *session.Store
}

func (r sessionResolver) resolve(id string) (*session.Session, error) {
	sess, err := r.store.Get(id)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, sessionNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SessionService manages analysis sessions
type SessionService struct {
	sessionResolver
	logger *slog.Logger
}

// NewSessionService creates a session service
func NewSessionService(store *session.Store, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessionResolver: sessionResolver{store: store},
		logger:          logger.With(slog.String("service", "session")),
	}
}

// Create starts a new session
func (s *SessionService) Create(ctx context.Context) (*SessionSummary, error) {
	sess, err := s.store.Create(ctx)
	if errors.Is(err, session.ErrTooManySessions) {
		s.logger.WarnContext(ctx, "session limit reached", slog.Int("sessions", s.store.Len()))
		return nil, tooManySessions()
	}
	if err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

// Get reports the state of a session
func (s *SessionService) Get(ctx context.Context, id string) (*SessionSummary, error) {
	sess, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

// Delete ends a session
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return sessionNotFound(id)
		}
		return err
	}
	return nil
}

func summarize(sess *session.Session) *SessionSummary {
	st := sess.State()
	out := &SessionSummary{
		ID:         sess.ID,
		CreatedAt:  sess.CreatedAt,
		LastAccess: sess.LastAccess(),
		Revision:   st.Revision,
		Missing:    st.Missing(),
		Forecast:   sess.ForecastStatus(),
	}
	if st.POS != nil {
		out.POS = posSummary(st.POS)
	}
	if st.Syllabus != nil {
		out.Syllabus = syllabusSummary(st.Syllabus)
	}
	if st.Calendar != nil {
		out.Calendar = calendarSummary(st.Calendar)
	}
	return out
}

func posSummary(in *session.POSInput) *POSSummary {
	out := &POSSummary{Stores: make([]StoreSummary, 0, len(domain.Stores))}
	if rep := in.Report; rep != nil {
		out.Archives = rep.Archives
		out.DuplicateArchives = rep.DuplicateArchives
		out.SkippedFiles = rep.SkippedFiles
		out.PaymentMethods = rep.PaymentMethods
		out.Stats = rep.Stats
	}
	for _, store := range domain.Stores {
		entry := StoreSummary{Store: store, Name: store.DisplayName()}
		if r, ok := in.Dataset.StoreRange(store); ok {
			entry.Range = &r
		} else {
			entry.Message = apperrors.MsgNoData
		}
		out.Stores = append(out.Stores, entry)
	}
	return out
}

func syllabusSummary(in *session.SyllabusInput) *SyllabusSummary {
	out := &SyllabusSummary{Name: in.Name}
	if in.Ranges != nil {
		out.Ranges = *in.Ranges
	}
	return out
}

func calendarSummary(in *session.CalendarInput) *CalendarSummary {
	out := &CalendarSummary{Name: in.Name}
	if in.Calendar != nil {
		out.Days = len(in.Calendar.Days)
		if r, ok := in.Calendar.Range(); ok {
			out.Range = &r
		}
	}
	return out
}

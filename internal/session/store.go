package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"poscope/internal/config"
	"poscope/internal/forecast"
	"poscope/internal/infrastructure"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the live session limit is reached
	ErrTooManySessions = errors.New("too many sessions")
)

// Store keeps live sessions in memory and expires idle ones
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg     config.SessionConfig
	ratio   float64
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
	now     func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewStore creates a session store. ratio is the forecast validation share
// given to every session's engine. metrics may be nil.
func NewStore(cfg config.SessionConfig, ratio float64, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		ratio:    ratio,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "session_store")),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Create starts a new session. Expired sessions are swept first when the
// store is full.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	if s.Len() >= s.cfg.MaxSessions {
		s.Sweep(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		s.logger.WarnContext(ctx, "session limit reached", slog.Int("max_sessions", s.cfg.MaxSessions))
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	sess := newSession(id, s.now(),
		forecast.NewEngine(s.ratio, s.metrics, s.logger),
		NewMemo(s.cfg.MemoEntries, s.metrics),
		s.logger)
	s.sessions[id] = sess
	s.metrics.RecordSessionChange(ctx, 1)
	s.logger.InfoContext(ctx, "session created", slog.String("session_id", id))
	return sess, nil
}

// Get returns a live session and marks it used
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	now := s.now()
	if !ok || sess.expired(now, s.cfg.TTL) {
		return nil, ErrSessionNotFound
	}
	sess.touch(now)
	return sess, nil
}

// Delete ends a session
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.metrics.RecordSessionChange(ctx, -1)
	s.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// Len returns the number of stored sessions, expired or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (s *Store) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.cfg.TTL) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.RecordSessionChange(ctx, int64(-removed))
		s.logger.InfoContext(ctx, "expired sessions removed", slog.Int("count", removed))
	}
	return removed
}

// Start sweeps expired sessions every CleanupInterval until ctx is done or
// Stop is called
func (s *Store) Start(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

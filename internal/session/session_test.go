package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poscope/internal/analytics"
	"poscope/internal/config"
	"poscope/internal/forecast"
	"poscope/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(maxSessions int) *Store {
	return NewStore(config.SessionConfig{
		TTL:         time.Hour,
		MaxSessions: maxSessions,
		MemoEntries: 4,
	}, 0.2, nil, testLogger())
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, KeyOf("a", "b"), KeyOf("a", "b"))
	assert.NotEqual(t, KeyOf("ab", "c"), KeyOf("a", "bc"))
	assert.NotEqual(t, KeyOf("a"), KeyOf("a", ""))
	assert.Len(t, KeyOf("x").String(), 64)
}

func TestRemember(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		validate func(t *testing.T, m *Memo)
	}{
		{
			name: "second lookup is served from the memo",
			validate: func(t *testing.T, m *Memo) {
				calls := 0
				fn := func() (int, error) { calls++; return 42, nil }
				v, err := Remember(ctx, m, "test", KeyOf("k"), fn)
				require.NoError(t, err)
				assert.Equal(t, 42, v)
				v, err = Remember(ctx, m, "test", KeyOf("k"), fn)
				require.NoError(t, err)
				assert.Equal(t, 42, v)
				assert.Equal(t, 1, calls)
				st := m.Stats()
				assert.Equal(t, int64(1), st.HitCount)
				assert.Equal(t, int64(1), st.MissCount)
				assert.InDelta(t, 0.5, st.HitRatio, 1e-9)
			},
		},
		{
			name: "errors are not cached",
			validate: func(t *testing.T, m *Memo) {
				boom := errors.New("boom")
				_, err := Remember(ctx, m, "test", KeyOf("k"), func() (string, error) { return "", boom })
				assert.ErrorIs(t, err, boom)
				assert.Equal(t, 0, m.Len())
				v, err := Remember(ctx, m, "test", KeyOf("k"), func() (string, error) { return "ok", nil })
				require.NoError(t, err)
				assert.Equal(t, "ok", v)
			},
		},
		{
			name: "oldest entry is evicted at capacity",
			validate: func(t *testing.T, m *Memo) {
				for _, k := range []string{"a", "b", "c", "d", "e"} {
					_, err := Remember(ctx, m, "test", KeyOf(k), func() (string, error) { return k, nil })
					require.NoError(t, err)
					time.Sleep(time.Millisecond)
				}
				assert.Equal(t, 4, m.Len())
				_, ok := m.peek(KeyOf("a"))
				assert.False(t, ok)
				_, ok = m.peek(KeyOf("e"))
				assert.True(t, ok)
			},
		},
		{
			name: "concurrent lookups compute once",
			validate: func(t *testing.T, m *Memo) {
				var calls atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 16; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						v, err := Remember(ctx, m, "test", KeyOf("shared"), func() (int, error) {
							calls.Add(1)
							time.Sleep(10 * time.Millisecond)
							return 7, nil
						})
						assert.NoError(t, err)
						assert.Equal(t, 7, v)
					}()
				}
				wg.Wait()
				assert.Equal(t, int32(1), calls.Load())
			},
		},
		{
			name: "clear empties the memo",
			validate: func(t *testing.T, m *Memo) {
				_, err := Remember(ctx, m, "test", KeyOf("k"), func() (int, error) { return 1, nil })
				require.NoError(t, err)
				m.Clear()
				assert.Equal(t, 0, m.Len())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewMemo(4, nil))
		})
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore(2)
	now := time.Date(2024, 4, 8, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	a, err := s.Create(ctx)
	require.NoError(t, err)
	b, err := s.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = s.Create(ctx)
	assert.ErrorIs(t, err, ErrTooManySessions)

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// b expires, a was touched 30 minutes later and survives
	now = now.Add(30 * time.Minute)
	_, err = s.Get(a.ID)
	require.NoError(t, err)
	now = now.Add(45 * time.Minute)

	_, err = s.Get(b.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	c, err := s.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, c.ID))
	assert.ErrorIs(t, s.Delete(ctx, c.ID), ErrSessionNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := testStore(10)
	now := time.Now()
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, s.Sweep(ctx))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 3, s.Sweep(ctx))
	assert.Equal(t, 0, s.Len())

	s.Stop()
	s.Stop()
}

func forecastFixture() ([]analytics.DailyCount, []domain.CalendarFeatures) {
	var labels []analytics.DailyCount
	var features []domain.CalendarFeatures
	d := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		day := d.AddDate(0, 0, i)
		features = append(features, domain.CalendarFeatures{
			CalendarDay: domain.CalendarDay{Date: day, AcademicYear: 2024, Term: domain.TermSpring, Class: domain.ClassMonday},
			WeekOfTerm:  1,
			Attendance:  domain.Number(100 + 10*i),
		})
		labels = append(labels, analytics.DailyCount{Date: day, Customers: float64(50 + i)})
	}
	return labels, features
}

func TestSession_ReplaceInvalidates(t *testing.T) {
	ctx := context.Background()
	s := testStore(1)
	sess, err := s.Create(ctx)
	require.NoError(t, err)

	st := sess.State()
	assert.Equal(t, []string{InputPOS, InputSyllabus, InputCalendar}, st.Missing())
	assert.False(t, st.Ready())

	labels, features := forecastFixture()
	sel := domain.ForecastSelection{Store: domain.StoreWest, Hours: domain.HoursMidday}
	err = sess.Forecast(func(_ AppState, e *forecast.Engine) error {
		return e.Prepare(ctx, sel, labels, features)
	})
	require.NoError(t, err)
	_, err = Remember(ctx, sess.Memo(), "test", KeyOf("x"), func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastPrepared, sess.ForecastStatus().State)

	sess.SetCalendar(CalendarInput{Name: "calendar.xlsx", Calendar: &domain.Calendar{}, Digest: "c1"})

	st = sess.State()
	assert.Equal(t, 1, st.Revision)
	assert.Equal(t, []string{InputPOS, InputSyllabus}, st.Missing())
	assert.Equal(t, domain.ForecastIdle, sess.ForecastStatus().State)
	assert.Equal(t, 0, sess.Memo().Len())

	sess.SetPOS(POSInput{Dataset: &domain.POSDataset{}, Digest: "p1"})
	sess.SetSyllabus(SyllabusInput{Name: "syllabus.xlsx", Syllabus: &domain.Syllabus{}, Digest: "s1"})
	st = sess.State()
	assert.True(t, st.Ready())
	assert.Equal(t, 3, st.Revision)
	assert.Equal(t, "p1", st.POS.Digest)
}

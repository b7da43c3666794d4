package session

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"poscope/internal/infrastructure"
)

// Key identifies a derived result by the digests of its inputs
type Key [blake2b.Size256]byte

// KeyOf hashes the parts into a Key. Parts are length-prefixed so that
// ("ab","c") and ("a","bc") differ.
func KeyOf(parts ...string) Key {
	h, _ := blake2b.New256(nil)
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// String returns the hex form of the key
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

type memoEntry struct {
	value    any
	cachedAt time.Time
	hits     int
}

// Memo caches derived results of one session. Concurrent lookups of the same
// key share one computation; errors are never cached.
type Memo struct {
	mu        sync.Mutex
	entries   map[Key]memoEntry
	maxSize   int
	group     singleflight.Group
	hitCount  int64
	missCount int64
	metrics   *infrastructure.BusinessMetrics
}

// NewMemo creates a memo holding at most maxSize entries. metrics may be nil.
func NewMemo(maxSize int, metrics *infrastructure.BusinessMetrics) *Memo {
	return &Memo{
		entries: make(map[Key]memoEntry),
		maxSize: maxSize,
		metrics: metrics,
	}
}

// Remember returns the cached value for key or computes it with fn. stage
// labels the lookup in metrics.
func Remember[T any](ctx context.Context, m *Memo, stage string, key Key, fn func() (T, error)) (T, error) {
	if v, ok := m.get(key); ok {
		m.metrics.RecordMemoLookup(ctx, stage, true)
		return v.(T), nil
	}
	m.metrics.RecordMemoLookup(ctx, stage, false)

	v, err, _ := m.group.Do(key.String(), func() (any, error) {
		if v, ok := m.peek(key); ok {
			return v, nil
		}
		out, err := fn()
		if err != nil {
			return nil, err
		}
		m.set(key, out)
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (m *Memo) get(key Key) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.missCount++
		return nil, false
	}
	entry.hits++
	m.entries[key] = entry
	m.hitCount++
	return entry.value, true
}

// peek looks up key without touching the statistics
func (m *Memo) peek(key Key) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	return entry.value, ok
}

func (m *Memo) set(key Key, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSize <= 0 {
		return
	}
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}
	m.entries[key] = memoEntry{value: value, cachedAt: time.Now()}
}

// Clear drops every entry
func (m *Memo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

// Len returns the number of cached entries
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemoStats summarizes memo usage
type MemoStats struct {
	Entries   int     `json:"entries"`
	MaxSize   int     `json:"max_size"`
	HitCount  int64   `json:"hit_count"`
	MissCount int64   `json:"miss_count"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Stats returns memo statistics
func (m *Memo) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := MemoStats{
		Entries:   len(m.entries),
		MaxSize:   m.maxSize,
		HitCount:  m.hitCount,
		MissCount: m.missCount,
	}
	if total := m.hitCount + m.missCount; total > 0 {
		st.HitRatio = float64(m.hitCount) / float64(total)
	}
	return st
}

func (m *Memo) evictOldest() {
	var oldestKey Key
	var oldestTime time.Time
	found := false

	for key, entry := range m.entries {
		if !found || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
			found = true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

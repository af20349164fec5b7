package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/calculator"
	"github.com/couchcryptid/flare-heat-flux/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("session store closed")
)

// StoreConfig bounds the store. A nil Clock uses real time.
type StoreConfig struct {
	Capacity int
	TTL      time.Duration
	Clock    clockwork.Clock
}

// Store keeps sessions in an LRU list bounded by Capacity. Sessions idle for
// longer than TTL are dropped when next looked up.
type Store struct {
	capacity int
	ttl      time.Duration
	clock    clockwork.Clock

	calc    *calculator.Calculator
	metrics *observability.Metrics
	logger  *slog.Logger

	closed atomic.Bool

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	session  *Session
	lastSeen time.Time
	prev     *entry
	next     *entry
}

// NewStore creates an empty session store.
func NewStore(cfg StoreConfig, calc *calculator.Calculator, logger *slog.Logger, metrics *observability.Metrics) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Store{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		clock:    clk,
		calc:     calc,
		metrics:  metrics,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

// Create starts a session with default inputs, evicting the least recently
// used session if the store is full.
func (s *Store) Create() (*Session, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	sess := newSession(uuid.NewString(), s.calc, s.metrics)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{session: sess, lastSeen: s.clock.Now()}
	s.entries[sess.ID] = e
	s.addToFront(e)
	if s.capacity > 0 && len(s.entries) > s.capacity {
		s.logger.Debug("session evicted", "id", s.tail.session.ID, "reason", "capacity")
		s.evict(s.tail)
	}
	s.metrics.SessionsActive.Set(float64(len(s.entries)))
	return sess, nil
}

// Get returns the session and marks it as recently used.
func (s *Store) Get(id string) (*Session, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.clock.Now()
	if s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl {
		s.logger.Debug("session evicted", "id", id, "reason", "expired")
		s.evict(e)
		s.metrics.SessionsActive.Set(float64(len(s.entries)))
		return nil, ErrNotFound
	}
	e.lastSeen = now
	s.moveToFront(e)
	return e.session, nil
}

// Delete removes a session. Unknown IDs are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		s.evict(e)
		s.metrics.SessionsActive.Set(float64(len(s.entries)))
	}
}

// Len reports the number of sessions held, including expired ones not yet
// looked up.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CheckReadiness reports the store as unavailable once it has been closed.
func (s *Store) CheckReadiness(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close drops all sessions and rejects further use.
func (s *Store) Close() {
	s.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.head, s.tail = nil, nil
	s.metrics.SessionsActive.Set(0)
}

func (s *Store) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *Store) addToFront(e *entry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Store) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
}

func (s *Store) evict(e *entry) {
	delete(s.entries, e.session.ID)
	s.remove(e)
}

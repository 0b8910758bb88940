package agent

import (
	"errors"
	"sync"
	"time"

	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

// ErrSessionNotFound is returned when a session key is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// Owner identifies who a session belongs to. Events carry it.
type Owner struct {
	UserID  string
	Channel string
}

// Entry is a stored session with its bookkeeping.
type Entry struct {
	ID        string
	Owner     Owner
	Session   *quiz.Session
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	release  []func()
}

// LastSeen returns the time the entry was last fetched from the store.
func (e *Entry) LastSeen() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen
}

// OnRelease registers f to run when the entry leaves the store.
func (e *Entry) OnRelease(f func()) {
	e.mu.Lock()
	e.release = append(e.release, f)
	e.mu.Unlock()
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()
}

func (e *Entry) close() {
	e.mu.Lock()
	fs := e.release
	e.release = nil
	e.mu.Unlock()

	for _, f := range fs {
		f()
	}
	// Listeners are gone; Reset only cancels a pending generation step.
	e.Session.Reset()
}

// StoreConfig holds dependencies for the session store.
type StoreConfig struct {
	Catalog *content.Catalog
	Events  EventLogger
	Options []quiz.Option
	Now     func() time.Time
}

// SessionStore keeps one quiz session per key in memory.
type SessionStore struct {
	catalog *content.Catalog
	events  EventLogger
	options []quiz.Option
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewSessionStore creates an empty store.
func NewSessionStore(cfg StoreConfig) *SessionStore {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = content.Default()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		catalog: catalog,
		events:  events,
		options: cfg.Options,
		now:     now,
		entries: make(map[string]*Entry),
	}
}

// Catalog returns the reference data sessions are created with.
func (s *SessionStore) Catalog() *content.Catalog {
	return s.catalog
}

// GetOrCreate returns the session for id, creating it when absent. The
// second return value reports whether it was created.
func (s *SessionStore) GetOrCreate(id string, owner Owner) (*Entry, bool) {
	now := s.now()

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		e.touch(now)
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.touch(now)
		return e, false
	}

	e = &Entry{
		ID:        id,
		Owner:     owner,
		Session:   quiz.New(s.catalog, s.options...),
		CreatedAt: now,
		lastSeen:  now,
	}
	e.OnRelease(e.Session.Subscribe(NewRecorder(s.events, id, owner)))
	s.entries[id] = e
	return e, true
}

// Get returns the session for id.
func (s *SessionStore) Get(id string) (*Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(s.now())
	return e, nil
}

// Delete removes the session for id and cancels any pending generation step.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.close()
	return nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes sessions not fetched for longer than maxIdle and returns
// their ids.
func (s *SessionStore) Sweep(maxIdle time.Duration) []string {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var expired []*Entry
	for id, e := range s.entries {
		if e.LastSeen().Before(cutoff) {
			expired = append(expired, e)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, e := range expired {
		e.close()
		ids = append(ids, e.ID)
	}
	return ids
}

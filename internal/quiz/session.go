package quiz

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-reader/internal/content"
)

// DefaultGenerationDelay is how long the generation step lasts.
const DefaultGenerationDelay = 900 * time.Millisecond

// Change is delivered to listeners after a transition is applied.
type Change struct {
	Action   Action
	Snapshot Snapshot
}

// Listener observes applied transitions. Changes are delivered one at a time
// in version order. Listeners run outside the session lock and may call back
// into the session; a change made from a listener is delivered after the
// current one.
type Listener func(Change)

// Option configures a Session.
type Option func(*Session)

// WithGenerationDelay overrides DefaultGenerationDelay.
func WithGenerationDelay(d time.Duration) Option {
	return func(s *Session) {
		s.delay = d
	}
}

// WithScheduler replaces the runtime timer, mainly for tests.
func WithScheduler(sch Scheduler) Option {
	return func(s *Session) {
		s.scheduler = sch
	}
}

// WithLogger sets the logger used for transition tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is one learner's pass through the flow. It is safe for concurrent
// use; the generation timer fires on its own goroutine.
type Session struct {
	catalog   *content.Catalog
	delay     time.Duration
	scheduler Scheduler
	logger    *slog.Logger

	mu       sync.Mutex
	st       state
	pending  Timer
	queue    []Change
	draining bool

	lmu       sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// New creates a session in the onboarding stage.
func New(catalog *content.Catalog, opts ...Option) *Session {
	s := &Session{
		catalog:   catalog,
		delay:     DefaultGenerationDelay,
		scheduler: RealScheduler,
		logger:    slog.Default(),
		st:        initialState(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the reference data the session runs against.
func (s *Session) Catalog() *content.Catalog {
	return s.catalog
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(s.catalog, s.st)
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// SelectLevel sets the level while onboarding.
func (s *Session) SelectLevel(l content.Level) Snapshot { return s.Apply(SelectLevel(l)) }

// ToggleTopic adds or removes a topic while onboarding.
func (s *Session) ToggleTopic(t content.Topic) Snapshot { return s.Apply(ToggleTopic(t)) }

// StartLearning begins the generation step once a level and at least one
// topic are chosen. The move to reading happens after the generation delay
// and cannot be interrupted except by Reset.
func (s *Session) StartLearning() Snapshot { return s.Apply(StartLearning()) }

// ProceedToQuiz moves from reading to the quiz.
func (s *Session) ProceedToQuiz() Snapshot { return s.Apply(ProceedToQuiz()) }

// SelectAnswer records an answer, replacing any earlier one for the question.
func (s *Session) SelectAnswer(questionID, option int) Snapshot {
	return s.Apply(SelectAnswer(questionID, option))
}

// Submit locks the answers and makes the score available.
func (s *Session) Submit() Snapshot { return s.Apply(Submit()) }

// ViewResults moves a submitted quiz to the results stage.
func (s *Session) ViewResults() Snapshot { return s.Apply(ViewResults()) }

// Reset restores the initial state from any stage and cancels a pending
// generation step.
func (s *Session) Reset() Snapshot { return s.Apply(Reset()) }

// Apply dispatches a caller action. Unknown kinds are ignored.
func (s *Session) Apply(a Action) Snapshot {
	snap, _ := s.TryApply(a)
	return snap
}

// TryApply is Apply that also reports whether the action changed the session.
// When another goroutine is delivering changes, TryApply may return before
// listeners have seen this one.
func (s *Session) TryApply(a Action) (Snapshot, bool) {
	if !a.Kind.Known() {
		return s.Snapshot(), false
	}
	a.generation = 0
	return s.dispatch(a)
}

func (s *Session) dispatch(a Action) (Snapshot, bool) {
	s.mu.Lock()
	next, applied := reduce(s.catalog, s.st, a)
	if !applied {
		snap := snapshotOf(s.catalog, s.st)
		s.mu.Unlock()
		return snap, false
	}
	s.st = next

	switch a.Kind {
	case ActionStartLearning:
		gen := next.generation
		s.pending = s.scheduler.AfterFunc(s.delay, func() {
			s.dispatch(Action{Kind: ActionGenerationComplete, generation: gen})
		})
	case ActionGenerationComplete:
		s.pending = nil
	case ActionReset:
		if s.pending != nil {
			s.pending.Stop()
			s.pending = nil
		}
	}

	snap := snapshotOf(s.catalog, next)
	s.queue = append(s.queue, Change{Action: a, Snapshot: snap})
	deliver := !s.draining
	s.draining = true
	s.mu.Unlock()

	s.logger.Debug("quiz transition",
		"action", a.Kind,
		"stage", snap.Stage,
		"version", snap.Version,
	)
	if deliver {
		s.drain()
	}
	return snap, true
}

// drain delivers queued changes until the queue is empty. Only one goroutine
// drains at a time, so listeners see changes in the order they were applied.
func (s *Session) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.notify(c)
	}
}

func (s *Session) notify(c Change) {
	s.lmu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		ls = append(ls, s.listeners[id])
	}
	s.lmu.RUnlock()

	for _, l := range ls {
		l(c)
	}
}

// Package quiz implements the reader session: a linear four-stage flow
// (onboarding, reading, quiz, results) with the data entered at each stage.
//
// Transitions are computed by a pure reducer over an immutable state value.
// Session wraps the reducer with locking, the timed generation step and
// change notification. Every operation is total: a call whose precondition
// does not hold leaves the state untouched.
package quiz

import (
	"maps"
	"slices"

	"github.com/p-n-ai/pai-reader/internal/content"
)

// Stage is the active step of the flow.
type Stage string

const (
	StageOnboarding Stage = "onboarding"
	StageReading    Stage = "reading"
	StageQuiz       Stage = "quiz"
	StageResults    Stage = "results"
)

// state is the full session state. Values are never mutated in place;
// reduce returns a new value when a transition applies.
type state struct {
	stage      Stage
	level      content.Level
	topics     []content.Topic
	generating bool
	generation uint64
	answers    map[int]int
	submitted  bool
	version    uint64
}

func initialState() state {
	return state{
		stage:   StageOnboarding,
		answers: map[int]int{},
	}
}

// reduce applies a to st. The boolean reports whether the state changed.
func reduce(c *content.Catalog, st state, a Action) (state, bool) {
	// While the generation latch is held only its own completion and a reset
	// are accepted.
	if st.generating && a.Kind != ActionGenerationComplete && a.Kind != ActionReset {
		return st, false
	}

	switch a.Kind {
	case ActionSelectLevel:
		if st.stage != StageOnboarding || st.level == a.Level {
			return st, false
		}
		if _, ok := c.Level(a.Level); !ok {
			return st, false
		}
		st.level = a.Level

	case ActionToggleTopic:
		if st.stage != StageOnboarding {
			return st, false
		}
		if _, ok := c.Topic(a.Topic); !ok {
			return st, false
		}
		if i := slices.Index(st.topics, a.Topic); i >= 0 {
			st.topics = slices.Delete(slices.Clone(st.topics), i, i+1)
		} else {
			st.topics = append(slices.Clone(st.topics), a.Topic)
		}

	case ActionStartLearning:
		if st.stage != StageOnboarding || st.level == "" || len(st.topics) == 0 {
			return st, false
		}
		st.generating = true
		st.generation++

	case ActionGenerationComplete:
		if !st.generating || a.generation != st.generation {
			return st, false
		}
		st.generating = false
		st.stage = StageReading

	case ActionProceedToQuiz:
		if st.stage != StageReading {
			return st, false
		}
		st.stage = StageQuiz

	case ActionSelectAnswer:
		if st.stage != StageQuiz || st.submitted {
			return st, false
		}
		if _, ok := c.Question(a.QuestionID); !ok {
			return st, false
		}
		if a.Option < 0 || a.Option >= content.OptionCount {
			return st, false
		}
		if prev, ok := st.answers[a.QuestionID]; ok && prev == a.Option {
			return st, false
		}
		answers := maps.Clone(st.answers)
		answers[a.QuestionID] = a.Option
		st.answers = answers

	case ActionSubmit:
		if st.stage != StageQuiz || st.submitted {
			return st, false
		}
		st.submitted = true

	case ActionViewResults:
		if st.stage != StageQuiz || !st.submitted {
			return st, false
		}
		st.stage = StageResults

	case ActionReset:
		next := initialState()
		// The counter keeps moving so a pending completion from before the
		// reset can never match.
		next.generation = st.generation + 1
		next.version = st.version
		st = next

	default:
		return st, false
	}

	st.version++
	return st, true
}

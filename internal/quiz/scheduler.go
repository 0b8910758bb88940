package quiz

import (
	"sync"
	"time"
)

// Timer is a pending scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs a function after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on the runtime timer.
var RealScheduler Scheduler = realScheduler{}

// ManualScheduler holds scheduled tasks until Fire is called. It lets tests
// and scripted drivers control when the generation step completes.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	owner *ManualScheduler
	f     func()
	done  bool
}

func (m *ManualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{owner: m, f: f}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Pending returns the number of tasks neither fired nor stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

// Fire runs every pending task and returns how many ran.
func (m *ManualScheduler) Fire() int {
	m.mu.Lock()
	var due []func()
	for _, t := range m.tasks {
		if !t.done {
			t.done = true
			due = append(due, t.f)
		}
	}
	m.tasks = nil
	m.mu.Unlock()

	for _, f := range due {
		f()
	}
	return len(due)
}

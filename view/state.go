package view

import (
	"sync"

	"todo-web/domain"
)

// State holds the last successfully fetched snapshot and the active filter.
type State struct {
	mu         sync.RWMutex
	snapshot   []domain.Task
	filter     domain.Filter
	generation uint64
	applied    uint64
}

// NewState returns an empty state with the "all" filter selected.
func NewState() *State {
	return &State{snapshot: []domain.Task{}, filter: domain.Filter{Status: domain.StatusAll}}
}

// Snapshot returns a copy of the current task list.
func (s *State) Snapshot() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTasks(s.snapshot)
}

func (s *State) Filter() domain.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *State) SetFilter(f domain.Filter) {
	if f.Status == "" {
		f.Status = domain.StatusAll
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Generation counts snapshot replacements.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// replace installs tasks as the snapshot unless a fetch issued later than seq
// has already been applied.
func (s *State) replace(seq uint64, tasks []domain.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	s.snapshot = copyTasks(tasks)
	s.generation++
	return true
}

func copyTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out
}

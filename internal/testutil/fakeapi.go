// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"todo-web/domain"
	"todo-web/storage"
)

// FakeAPI is an in-memory todo API for tests.
type FakeAPI struct {
	mu     sync.Mutex
	tasks  []domain.Task
	nextID int64
	calls  map[string]int

	// Error injection for testing
	ListErr   error
	CreateErr error
	UpdateErr error
	ToggleErr error
	DeleteErr error

	// BeforeList runs at the start of every ListTasks call, outside the lock.
	BeforeList func(ctx context.Context)
}

// NewFakeAPI creates a FakeAPI seeded with tasks.
func NewFakeAPI(tasks ...domain.Task) *FakeAPI {
	f := &FakeAPI{calls: make(map[string]int), nextID: 1}
	for _, t := range tasks {
		f.tasks = append(f.tasks, t)
		if t.ID >= f.nextID {
			f.nextID = t.ID + 1
		}
	}
	return f
}

// Calls returns how many times op was invoked, including failed calls.
func (f *FakeAPI) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Tasks returns a copy of the stored tasks.
func (f *FakeAPI) Tasks() []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Task(nil), f.tasks...)
}

func (f *FakeAPI) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

// ListTasks implements view.TaskAPI.
func (f *FakeAPI) ListTasks(ctx context.Context) ([]domain.Task, error) {
	f.record("list")
	if f.BeforeList != nil {
		f.BeforeList(ctx)
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Tasks(), nil
}

// CreateTask implements view.TaskAPI.
func (f *FakeAPI) CreateTask(ctx context.Context, in domain.TaskInput) error {
	f.record("create")
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, domain.Task{
		ID:          f.nextID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	f.nextID++
	return nil
}

// UpdateTask implements view.TaskAPI.
func (f *FakeAPI) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) error {
	f.record("update")
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return notFound(http.MethodPut, id)
	}
	t := &f.tasks[i]
	t.Title, t.Description, t.Category, t.Priority, t.DueDate = in.Title, in.Description, in.Category, in.Priority, in.DueDate
	return nil
}

// ToggleTask implements view.TaskAPI.
func (f *FakeAPI) ToggleTask(ctx context.Context, id int64) error {
	f.record("toggle")
	if f.ToggleErr != nil {
		return f.ToggleErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return notFound(http.MethodPatch, id)
	}
	f.tasks[i].Completed = 1 - f.tasks[i].Completed
	return nil
}

// DeleteTask implements view.TaskAPI. Unknown ids answer 404.
func (f *FakeAPI) DeleteTask(ctx context.Context, id int64) error {
	f.record("delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return notFound(http.MethodDelete, id)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *FakeAPI) indexOf(id int64) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func notFound(method string, id int64) error {
	return &storage.StatusError{
		Method: method,
		Path:   "/api/v1/todos/" + strconv.FormatInt(id, 10),
		Code:   http.StatusNotFound,
	}
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }

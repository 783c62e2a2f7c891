// Package view owns the task list state and runs the fetch, mutate and reload
// cycle against the todo API.
package view

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todo-web/domain"
)

// DeletePrompt is the question put to the user before a delete.
const DeletePrompt = "Are you sure you want to delete this task?"

// TaskAPI is the collaborator REST API.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) error
	UpdateTask(ctx context.Context, id int64, in domain.TaskInput) error
	ToggleTask(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error
}

// Deduper records add-form submission keys so a resubmitted form is not posted twice.
type Deduper interface {
	Add(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

// Confirmer answers a yes/no prompt.
type Confirmer func(prompt string) bool

// Mutation describes a completed write.
type Mutation struct {
	Op string `json:"op"`
	ID int64  `json:"id,omitempty"`
}

// Observer is told about renders and completed mutations.
type Observer interface {
	// OnRender runs after every successful snapshot replacement.
	OnRender(Page)
	// OnMutationComplete runs after a write succeeded, before the reload.
	OnMutationComplete(Mutation)
}

// EditForm is an open inline edit for one task.
type EditForm struct {
	ID int64
	domain.TaskForm
}

// AddForm is the create form. Submission identifies one attempt to submit it.
type AddForm struct {
	domain.TaskForm
	Submission string
}

// NewAddForm returns a cleared add form with a fresh submission key.
func NewAddForm() AddForm {
	return AddForm{TaskForm: domain.NewTaskForm(), Submission: uuid.NewString()}
}

// Option configures a View.
type Option func(*View)

// WithClock overrides the time source used for due date labels.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// WithLocation sets the zone used to read and display due dates.
func WithLocation(loc *time.Location) Option {
	return func(v *View) {
		if loc != nil {
			v.loc = loc
		}
	}
}

// WithDeduper enables duplicate add-form suppression.
func WithDeduper(d Deduper) Option {
	return func(v *View) { v.dedupe = d }
}

func WithLogger(logger *log.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// View is the task list controller.
type View struct {
	api    TaskAPI
	state  *State
	loc    *time.Location
	now    func() time.Time
	dedupe Deduper
	logger *log.Logger

	seq atomic.Uint64

	mu        sync.RWMutex
	observers []Observer
}

// New creates a View over api with an empty snapshot.
func New(api TaskAPI, opts ...Option) *View {
	v := &View{
		api:    api,
		state:  NewState(),
		loc:    time.Local,
		now:    time.Now,
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// State exposes the view state.
func (v *View) State() *State { return v.state }

// Location is the zone due dates are read and displayed in.
func (v *View) Location() *time.Location { return v.loc }

// Subscribe registers o for render and mutation notifications.
func (v *View) Subscribe(o Observer) {
	v.mu.Lock()
	v.observers = append(v.observers, o)
	v.mu.Unlock()
}

func (v *View) snapshotObservers() []Observer {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Observer(nil), v.observers...)
}

// FetchAndRender loads the full list and renders it with the current filter.
// On failure the previous snapshot is kept. A response that arrives after a
// newer fetch has been applied is dropped.
func (v *View) FetchAndRender(ctx context.Context) (Page, error) {
	seq := v.seq.Add(1)
	tasks, err := v.api.ListTasks(ctx)
	if err != nil {
		return Page{}, actionError("list", msgLoadFailed, err)
	}
	if !v.state.replace(seq, tasks) {
		v.logger.WithField("seq", seq).Debug("discarding stale task list response")
		return v.Render(v.state.Filter()), nil
	}
	page := v.Render(v.state.Filter())
	for _, o := range v.snapshotObservers() {
		o.OnRender(page)
	}
	return page, nil
}

// Render builds the page for filter from the current snapshot. Statistics
// always cover the full snapshot.
func (v *View) Render(filter domain.Filter) Page {
	v.state.mu.RLock()
	tasks := copyTasks(v.state.snapshot)
	gen := v.state.generation
	v.state.mu.RUnlock()

	visible := domain.Apply(tasks, filter)
	now := v.now()
	items := make([]Item, 0, len(visible))
	for _, t := range visible {
		item := Item{Task: t}
		item.Due, item.HasDue = domain.Annotate(t, now, v.loc)
		items = append(items, item)
	}
	return Page{
		Items:      items,
		Empty:      len(items) == 0,
		Stats:      domain.ComputeStats(tasks),
		Filter:     filter,
		Generation: gen,
	}
}

// Statistics returns counters for the current snapshot.
func (v *View) Statistics() domain.Stats {
	return domain.ComputeStats(v.state.Snapshot())
}

// ToggleCompletion flips task id and reloads.
func (v *View) ToggleCompletion(ctx context.Context, id int64) error {
	if err := v.api.ToggleTask(ctx, id); err != nil {
		return actionError("toggle", msgUpdateFailed, err)
	}
	return v.afterMutation(ctx, Mutation{Op: "toggle", ID: id})
}

// StartEdit opens an edit form for id. ok is false when the task is not in the snapshot.
func (v *View) StartEdit(id int64) (EditForm, bool) {
	t, ok := domain.FindTask(v.state.Snapshot(), id)
	if !ok {
		return EditForm{}, false
	}
	return EditForm{ID: id, TaskForm: domain.FormFromTask(t, v.loc)}, true
}

// CommitEdit validates form and replaces the task upstream. A blank title is
// rejected without a request.
func (v *View) CommitEdit(ctx context.Context, form EditForm) error {
	in, err := form.Input(v.loc)
	if err != nil {
		return actionError("update", msgUpdateFailed, err)
	}
	if err := v.api.UpdateTask(ctx, form.ID, in); err != nil {
		return actionError("update", msgUpdateFailed, err)
	}
	return v.afterMutation(ctx, Mutation{Op: "update", ID: form.ID})
}

// DeleteTask removes id after confirm agrees. A task that is already gone
// upstream still triggers the reload.
func (v *View) DeleteTask(ctx context.Context, id int64, confirm Confirmer) error {
	if confirm == nil || !confirm(DeletePrompt) {
		return ErrNotConfirmed
	}
	if err := v.api.DeleteTask(ctx, id); err != nil {
		if !isGone(err) {
			return actionError("delete", msgDeleteFailed, err)
		}
		v.logger.WithField("id", id).Info("task already deleted upstream")
	}
	return v.afterMutation(ctx, Mutation{Op: "delete", ID: id})
}

// CreateTask posts the add form. On success the returned form is cleared; on
// failure the caller should keep showing the submitted values.
func (v *View) CreateTask(ctx context.Context, form AddForm) (AddForm, error) {
	in, err := form.Input(v.loc)
	if err != nil {
		return form, actionError("create", msgCreateFailed, err)
	}

	if v.dedupe != nil && form.Submission != "" {
		added, err := v.dedupe.Add(ctx, form.Submission)
		switch {
		case err != nil:
			v.logger.WithError(err).Warn("submission dedupe unavailable")
		case !added:
			v.logger.WithField("submission", form.Submission).Info("duplicate add form submission ignored")
			if _, err := v.FetchAndRender(ctx); err != nil {
				return NewAddForm(), err
			}
			return NewAddForm(), nil
		}
	}

	if err := v.api.CreateTask(ctx, in); err != nil {
		if v.dedupe != nil && form.Submission != "" {
			if rerr := v.dedupe.Remove(ctx, form.Submission); rerr != nil {
				v.logger.WithError(rerr).Warn("failed to release submission key")
			}
		}
		return form, actionError("create", msgCreateFailed, err)
	}
	return NewAddForm(), v.afterMutation(ctx, Mutation{Op: "create"})
}

func (v *View) afterMutation(ctx context.Context, m Mutation) error {
	for _, o := range v.snapshotObservers() {
		o.OnMutationComplete(m)
	}
	if _, err := v.FetchAndRender(ctx); err != nil {
		return err
	}
	return nil
}

package api

import (
	"context"

	"todo-web/domain"
	"todo-web/view"
)

// TaskList is the view the handlers drive.
type TaskList interface {
	FetchAndRender(ctx context.Context) (view.Page, error)
	Render(filter domain.Filter) view.Page
	State() *view.State
	Subscribe(o view.Observer)
	StartEdit(id int64) (view.EditForm, bool)
	CommitEdit(ctx context.Context, form view.EditForm) error
	ToggleCompletion(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64, confirm view.Confirmer) error
	CreateTask(ctx context.Context, form view.AddForm) (view.AddForm, error)
}

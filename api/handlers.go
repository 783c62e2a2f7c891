package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-web/domain"
	"todo-web/view"
)

// Register wires up all page routes on the provided Echo instance and
// subscribes the SSE broker to the view.
func Register(e *echo.Echo, tl TaskList, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	broker := newUpdateBroker(logger)
	tl.Subscribe(broker)

	e.GET("/", index(tl, logger))
	e.GET("/partials/list", listPartial(tl))
	e.POST("/todos", createTodo(tl, logger))
	e.GET("/todos/:id/edit", editTodo(tl, logger))
	e.POST("/todos/:id", commitEdit(tl, logger))
	e.POST("/todos/:id/toggle", toggleTodo(tl, logger))
	e.GET("/todos/:id/delete", confirmDelete(tl, logger))
	e.POST("/todos/:id/delete", deleteTodo(tl, logger))
	e.GET("/events", streamEvents(broker))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
}

func index(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "/", "view")
		var failure error
		defer func() {
			metrics.Log(c.Response().Status, errors.Join(err, failure))
		}()

		f, provided := filterFromQuery(c)
		metrics.SetFilterProvided(provided)
		if provided {
			tl.State().SetFilter(f)
		} else {
			f = tl.State().Filter()
		}

		fetchStart := time.Now()
		_, fetchErr := tl.FetchAndRender(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			failure = recordFailure(metrics, logger, fetchErr)
			return renderFailure(c, tl, metrics, f, view.Screen{}, fetchErr)
		}

		screen := view.Screen{Page: tl.Render(f), Add: view.NewAddForm()}
		metrics.SetTasksShown(len(screen.Page.Items))
		return renderPage(c, metrics, http.StatusOK, view.PageTemplate, screen)
	}
}

func listPartial(tl TaskList) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, _ := currentFilter(c, tl)
		return c.Render(http.StatusOK, view.ListTemplate, view.Screen{Page: tl.Render(f)})
	}
}

func createTodo(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "/todos", "create")
		var failure error
		defer func() {
			metrics.Log(c.Response().Status, errors.Join(err, failure))
		}()

		f, _ := currentFilter(c, tl)
		form := view.AddForm{TaskForm: formValues(c), Submission: c.FormValue("submission")}
		next, createErr := tl.CreateTask(ctx, form)
		if createErr != nil {
			failure = recordFailure(metrics, logger, createErr)
			return renderFailure(c, tl, metrics, f, view.Screen{Add: next}, createErr)
		}
		return redirectHome(c, f)
	}
}

func editTodo(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "/todos/:id/edit", "edit")
		var failure error
		defer func() {
			metrics.Log(c.Response().Status, errors.Join(err, failure))
		}()

		id, idErr := taskID(c)
		if idErr != nil {
			metrics.SetErrorStage("invalid_id")
			return c.String(http.StatusBadRequest, idErr.Error())
		}
		f, _ := currentFilter(c, tl)
		if loadErr := ensureLoaded(ctx, tl); loadErr != nil {
			failure = recordFailure(metrics, logger, loadErr)
			return renderFailure(c, tl, metrics, f, view.Screen{}, loadErr)
		}

		screen := view.Screen{Page: tl.Render(f), Add: view.NewAddForm()}
		if form, ok := tl.StartEdit(id); ok {
			screen.Edit = &form
		}
		metrics.SetTasksShown(len(screen.Page.Items))
		return renderPage(c, metrics, http.StatusOK, view.PageTemplate, screen)
	}
}

func commitEdit(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "/todos/:id", "update")
		var failure error
		defer func() {
			metrics.Log(c.Response().Status, errors.Join(err, failure))
		}()

		id, idErr := taskID(c)
		if idErr != nil {
			metrics.SetErrorStage("invalid_id")
			return c.String(http.StatusBadRequest, idErr.Error())
		}
		f, _ := currentFilter(c, tl)
		form := view.EditForm{ID: id, TaskForm: formValues(c)}
		if editErr := tl.CommitEdit(ctx, form); editErr != nil {
			failure = recordFailure(metrics, logger, editErr)
			screen := view.Screen{}
			if !isReloadFailure(editErr) {
				screen.Edit = &form
			}
			return renderFailure(c, tl, metrics, f, screen, editErr)
		}
		return redirectHome(c, f)
	}
}

func toggleTodo(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "/todos/:id/toggle", "toggle")
		var failure error
		defer func() {
			metrics.Log(c.Response().Status, errors.Join(err, failure))
		}()

		id, idErr := taskID(c)
		if idErr != nil {
			metrics.SetErrorStage("invalid_id")
			return c.String(http.StatusBadRequest, idErr.Error())
		}
		f, _ := currentFilter(c, tl)
		if toggleErr := tl.ToggleCompletion(ctx, id); toggleErr != nil {
			failure = recordFailure(metrics, logger, toggleErr)
			return renderFailure(c, tl, metrics, f, view.Screen{}, toggleErr)
		}
		return redirectHome(c, f)
	}
}

func confirmDelete(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		f, _ := currentFilter(c, tl)
		screen := view.Screen{Page: tl.Render(f), Prompt: view.DeletePrompt}
		if loadErr := ensureLoaded(c.Request().Context(), tl); loadErr != nil {
			logger.WithError(loadErr).Warn("task list fetch failed")
			screen.Notice = noticeFor(loadErr)
		}
		task, ok := domain.FindTask(tl.State().Snapshot(), id)
		if !ok {
			task = domain.Task{ID: id}
		}
		screen.Confirm = &task
		return c.Render(http.StatusOK, view.ConfirmTemplate, screen)
	}
}

func deleteTodo(tl TaskList, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "/todos/:id/delete", "delete")
		var failure error
		defer func() {
			metrics.Log(c.Response().Status, errors.Join(err, failure))
		}()

		id, idErr := taskID(c)
		if idErr != nil {
			metrics.SetErrorStage("invalid_id")
			return c.String(http.StatusBadRequest, idErr.Error())
		}
		f, _ := currentFilter(c, tl)
		confirmed := func(string) bool { return c.FormValue("confirm") == "yes" }
		deleteErr := tl.DeleteTask(ctx, id, confirmed)
		switch {
		case deleteErr == nil, errors.Is(deleteErr, view.ErrNotConfirmed):
			return redirectHome(c, f)
		default:
			failure = recordFailure(metrics, logger, deleteErr)
			return renderFailure(c, tl, metrics, f, view.Screen{}, deleteErr)
		}
	}
}

func startRequest(c echo.Context, logger *log.Logger, route, action string) (*pageRequestMetrics, context.Context) {
	metrics, ctx := newPageRequestMetrics(c.Request().Context(), logger, route, action)
	c.SetRequest(c.Request().WithContext(ctx))
	return metrics, ctx
}

func ensureLoaded(ctx context.Context, tl TaskList) error {
	if tl.State().Generation() > 0 {
		return nil
	}
	_, err := tl.FetchAndRender(ctx)
	return err
}

// filterFromQuery reports ok when the request names any filter field.
func filterFromQuery(c echo.Context) (domain.Filter, bool) {
	q := c.QueryParams()
	if !q.Has("status") && !q.Has("category") && !q.Has("priority") {
		return domain.Filter{}, false
	}
	return domain.ParseFilter(q.Get("status"), q.Get("category"), q.Get("priority")), true
}

func currentFilter(c echo.Context, tl TaskList) (domain.Filter, bool) {
	if f, ok := filterFromQuery(c); ok {
		return f, true
	}
	return tl.State().Filter(), false
}

func taskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", c.Param("id"))
	}
	return id, nil
}

func formValues(c echo.Context) domain.TaskForm {
	return domain.TaskForm{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Priority:    c.FormValue("priority"),
		DueDate:     c.FormValue("due_date"),
	}
}

func redirectHome(c echo.Context, f domain.Filter) error {
	target := "/"
	if q := f.Query(); q != "" {
		target += "?" + q
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func renderPage(c echo.Context, metrics *pageRequestMetrics, status int, name string, screen view.Screen) error {
	start := time.Now()
	err := c.Render(status, name, screen)
	metrics.ObserveRender(time.Since(start))
	if err != nil {
		metrics.SetErrorStage("render")
	}
	return err
}

// renderFailure re-renders the page from the current snapshot with a notice.
// Form values already on screen are kept.
func renderFailure(c echo.Context, tl TaskList, metrics *pageRequestMetrics, f domain.Filter, screen view.Screen, cause error) error {
	screen.Page = tl.Render(f)
	screen.Notice = noticeFor(cause)
	if screen.Add.TaskForm == (domain.TaskForm{}) {
		screen.Add.TaskForm = domain.NewTaskForm()
	}
	if screen.Add.Submission == "" {
		screen.Add.Submission = uuid.NewString()
	}
	metrics.SetTasksShown(len(screen.Page.Items))
	return renderPage(c, metrics, statusForError(cause), view.PageTemplate, screen)
}

// recordFailure tags the request with the failing stage. Upstream failures are
// returned so they reach the observability event; validation failures are not.
func recordFailure(metrics *pageRequestMetrics, logger *log.Logger, err error) error {
	var aerr *view.ActionError
	if errors.As(err, &aerr) && aerr.Kind == view.KindValidation {
		metrics.SetErrorStage("validation")
		return nil
	}
	metrics.SetErrorStage("upstream")
	entry := logger.WithError(err)
	if aerr != nil {
		entry = entry.WithFields(log.Fields{"op": aerr.Op, "kind": aerr.Kind.String()})
	}
	entry.Warn("task action failed")
	return err
}

func statusForError(err error) int {
	var aerr *view.ActionError
	if errors.As(err, &aerr) && aerr.Kind == view.KindValidation {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func noticeFor(err error) string {
	var aerr *view.ActionError
	if errors.As(err, &aerr) {
		return aerr.Message
	}
	return "Something went wrong"
}

func isReloadFailure(err error) bool {
	var aerr *view.ActionError
	return errors.As(err, &aerr) && aerr.Op == "list"
}

package api

import (
	"io"

	"github.com/labstack/echo/v4"

	"todo-web/view"
)

// templateRenderer adapts view.Renderer to echo.Renderer.
type templateRenderer struct {
	r *view.Renderer
}

func (t templateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return t.r.Execute(w, name, data)
}

package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"todo-web/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	PageTemplate    = "page.html"
	ListTemplate    = "list"
	ConfirmTemplate = "confirm.html"
)

var templateFuncs = template.FuncMap{
	"priorities": func() []domain.Priority {
		return []domain.Priority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh}
	},
	"int": func(p domain.Priority) string { return strconv.Itoa(int(p)) },
}

// Renderer executes the embedded HTML templates.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("todo").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Execute writes template name with data to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

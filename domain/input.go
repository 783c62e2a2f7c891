package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}
	return v
}

// notBlank rejects strings that are empty after trimming.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// TaskInput is the request body for creating or replacing a task.
type TaskInput struct {
	Title       string   `json:"title" validate:"notblank"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Priority    Priority `json:"priority" validate:"oneof=1 2 3"`
	DueDate     *int64   `json:"due_date"`
}

// ValidationError is a client-side rejection of user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var fieldMessages = map[string]string{
	"Title":    "Title is required",
	"Priority": "Priority must be Low, Medium or High",
	"DueDate":  "Due date is invalid",
}

// Validate checks the input and returns a *ValidationError for the first failing field.
func (in TaskInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].StructField()
		return &ValidationError{Field: field, Message: fieldMessages[field]}
	}
	return err
}

// TaskForm holds the raw values of an add or edit form.
type TaskForm struct {
	Title       string
	Description string
	Category    string
	Priority    string
	DueDate     string
}

// NewTaskForm returns an empty form with the default priority selected.
func NewTaskForm() TaskForm {
	return TaskForm{Priority: strconv.Itoa(int(DefaultPriority))}
}

// FormFromTask fills a form with the current values of t.
func FormFromTask(t Task, loc *time.Location) TaskForm {
	return TaskForm{
		Title:       t.Title,
		Description: t.DescriptionText(),
		Category:    t.CategoryText(),
		Priority:    strconv.Itoa(int(t.Priority)),
		DueDate:     FormatDateTimeLocal(t.DueDate, loc),
	}
}

// Input converts the form to a validated TaskInput. Text fields are trimmed and
// blank optional fields become null.
func (f TaskForm) Input(loc *time.Location) (TaskInput, error) {
	in := TaskInput{
		Title:       strings.TrimSpace(f.Title),
		Description: optional(f.Description),
		Category:    optional(f.Category),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.Priority)); err == nil {
		in.Priority = Priority(n)
	}
	due, err := ParseDateTimeLocal(f.DueDate, loc)
	if err != nil {
		return TaskInput{}, &ValidationError{Field: "DueDate", Message: fieldMessages["DueDate"]}
	}
	in.DueDate = due
	if err := in.Validate(); err != nil {
		return TaskInput{}, err
	}
	return in, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

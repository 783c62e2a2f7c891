package domain

import "strings"

// Priority is the task importance level as stored by the todo API.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3

	// DefaultPriority is preselected on a fresh add form.
	DefaultPriority = PriorityMedium
)

// Valid reports whether p is one of the three known levels.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return ""
}

func (p Priority) Class() string {
	if !p.Valid() {
		return ""
	}
	return "priority-" + strings.ToLower(p.Label())
}

// Task represents a single todo record as returned by the todo API.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Priority    Priority `json:"priority"`
	Completed   int      `json:"completed"`
	DueDate     *int64   `json:"due_date"`
}

// Done reports whether the completion flag is set.
func (t Task) Done() bool {
	return t.Completed == 1
}

// DescriptionText returns the description or "" when absent.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// CategoryText returns the category or "" when absent.
func (t Task) CategoryText() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// FindTask returns the task with the given id from tasks.
func FindTask(tasks []Task, id int64) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

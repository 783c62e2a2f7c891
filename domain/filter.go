package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// Status selects tasks by completion state.
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ParseStatus maps raw input to a Status. Unknown values select all tasks.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusCompleted:
		return StatusCompleted
	}
	return StatusAll
}

// Filter narrows a snapshot before display.
// Zero values mean the filter is not applied.
type Filter struct {
	Status   Status
	Category string
	Priority Priority
}

// ParseFilter builds a Filter from raw query or form values.
// An unparsable or out of range priority leaves the priority filter unset.
func ParseFilter(status, category, priority string) Filter {
	f := Filter{
		Status:   ParseStatus(status),
		Category: strings.TrimSpace(category),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(priority)); err == nil && Priority(n).Valid() {
		f.Priority = Priority(n)
	}
	return f
}

// Query encodes the filter as URL query parameters, omitting unset fields.
func (f Filter) Query() string {
	v := url.Values{}
	if f.Status != "" && f.Status != StatusAll {
		v.Set("status", string(f.Status))
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Priority.Valid() {
		v.Set("priority", strconv.Itoa(int(f.Priority)))
	}
	return v.Encode()
}

// Apply returns the subset of tasks matching f, in input order.
// Stages run in order: completion status, category substring, priority.
func Apply(tasks []Task, f Filter) []Task {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch f.Status {
		case StatusActive:
			if t.Completed != 0 {
				continue
			}
		case StatusCompleted:
			if t.Completed != 1 {
				continue
			}
		}
		if category != "" {
			if t.Category == nil || !strings.Contains(strings.ToLower(*t.Category), category) {
				continue
			}
		}
		if f.Priority.Valid() && t.Priority != f.Priority {
			continue
		}
		out = append(out, t)
	}
	return out
}

package view

import "todo-web/domain"

// Item is one rendered row.
type Item struct {
	Task   domain.Task
	Due    domain.Due
	HasDue bool
}

// Page is the rendered list for one filter.
type Page struct {
	Items      []Item
	Empty      bool
	Stats      domain.Stats
	Filter     domain.Filter
	Generation uint64
}

// Screen is everything the full page template needs.
type Screen struct {
	Page   Page
	Add    AddForm
	Edit   *EditForm
	Notice string
	// Confirm is set while a delete waits for confirmation.
	Confirm *domain.Task
	Prompt  string
}

// Query is the filter encoded for links and form actions, with a leading "?"
// when non-empty.
func (s Screen) Query() string {
	if q := s.Page.Filter.Query(); q != "" {
		return "?" + q
	}
	return ""
}

package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"todo-web/domain"
	"todo-web/internal/testutil"
)

func renderScreen(t *testing.T, name string, s Screen) string {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	var buf bytes.Buffer
	if err := r.Execute(&buf, name, s); err != nil {
		t.Fatalf("execute %s: %v", name, err)
	}
	return buf.String()
}

func TestRenderEscapesUserText(t *testing.T) {
	v := New(testutil.NewFakeAPI(domain.Task{
		ID:          1,
		Title:       "<script>alert(1)</script>",
		Description: testutil.StrPtr(`"quoted" & <b>bold</b>`),
		Category:    testutil.StrPtr("<img src=x>"),
		Priority:    domain.PriorityHigh,
	}))
	mustFetch(t, v)

	out := renderScreen(t, PageTemplate, Screen{Page: v.Render(domain.Filter{Status: domain.StatusAll}), Add: NewAddForm()})
	for _, raw := range []string{"<script>alert(1)</script>", "<b>bold</b>", "<img src=x>"} {
		if strings.Contains(out, raw) {
			t.Fatalf("expected %q to be escaped", raw)
		}
	}
	if !strings.Contains(out, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatal("expected escaped title in output")
	}
	if !strings.Contains(out, `class="priority-badge priority-high"`) {
		t.Fatal("expected priority badge class")
	}
}

func TestRenderEmptyPlaceholderAndCounters(t *testing.T) {
	v := New(testutil.NewFakeAPI(seedTasks()...))
	mustFetch(t, v)

	out := renderScreen(t, ListTemplate, Screen{Page: v.Render(domain.Filter{Status: domain.StatusAll, Category: "nothing"})})
	if !strings.Contains(out, "No tasks found") {
		t.Fatal("expected empty placeholder")
	}
	for _, want := range []string{
		`id="total-count">3<`,
		`id="active-count">2<`,
		`id="completed-count">1<`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output:\n%s", want, out)
		}
	}
}

func TestRenderDueAnnotation(t *testing.T) {
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour).Unix()
	v := New(testutil.NewFakeAPI(domain.Task{ID: 1, Title: "late", Priority: 1, DueDate: &due}),
		WithClock(func() time.Time { return now }), WithLocation(time.UTC))
	mustFetch(t, v)

	out := renderScreen(t, ListTemplate, Screen{Page: v.Render(domain.Filter{})})
	if !strings.Contains(out, `class="due-date overdue"`) || !strings.Contains(out, "Mar 10, 2026, 10:00 AM (Overdue)") {
		t.Fatalf("expected overdue annotation:\n%s", out)
	}
}

func TestRenderEditFormAndFilterLinks(t *testing.T) {
	v := New(testutil.NewFakeAPI(seedTasks()...))
	mustFetch(t, v)
	edit, ok := v.StartEdit(1)
	if !ok {
		t.Fatal("expected edit form")
	}
	filter := domain.Filter{Status: domain.StatusActive}

	out := renderScreen(t, PageTemplate, Screen{Page: v.Render(filter), Add: NewAddForm(), Edit: &edit, Notice: "Failed to update task"})
	for _, want := range []string{
		`id="edit-title-1"`,
		`value="Buy groceries"`,
		`action="/todos/1?status=active"`,
		`<option value="3" selected>High</option>`,
		`<option value="active" selected>Active</option>`,
		`role="alert">Failed to update task<`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, `id="edit-title-3"`) {
		t.Fatal("only the edited task should show the edit form")
	}
}

func TestRenderConfirmPage(t *testing.T) {
	task := domain.Task{ID: 9, Title: "Old <task>", Priority: 1}
	out := renderScreen(t, ConfirmTemplate, Screen{Confirm: &task, Prompt: DeletePrompt})
	if !strings.Contains(out, DeletePrompt) || !strings.Contains(out, `action="/todos/9/delete"`) {
		t.Fatalf("unexpected confirm page:\n%s", out)
	}
	if strings.Contains(out, "Old <task>") {
		t.Fatal("expected escaped title")
	}
}

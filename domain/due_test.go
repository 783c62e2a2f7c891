package domain

import (
	"testing"
	"time"
)

func TestLabelFor(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		due  time.Time
		want DueLabel
	}{
		{"one second ago", now.Add(-time.Second), DueOverdue},
		{"two days ago", now.Add(-48 * time.Hour), DueOverdue},
		{"exactly now", now, DueSoon},
		{"in one day", now.Add(24 * time.Hour), DueSoon},
		{"in two days", now.Add(48 * time.Hour), DueSoon},
		{"just over two days", now.Add(48*time.Hour + time.Minute), DueNone},
		{"in five days", now.Add(5 * 24 * time.Hour), DueNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelFor(tt.due, now); got != tt.want {
				t.Fatalf("LabelFor = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDaysUntilRoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := DaysUntil(now.Add(time.Hour), now); got != 1 {
		t.Fatalf("expected 1 day, got %d", got)
	}
	if got := DaysUntil(now.Add(-25*time.Hour), now); got != -1 {
		t.Fatalf("expected -1 day, got %d", got)
	}
}

func TestAnnotate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if _, ok := Annotate(Task{ID: 1}, now, time.UTC); ok {
		t.Fatalf("expected no annotation without due date")
	}

	due := now.Add(-time.Hour).Unix()
	d, ok := Annotate(Task{ID: 1, DueDate: &due}, now, time.UTC)
	if !ok {
		t.Fatalf("expected annotation")
	}
	if d.Label != DueOverdue || d.Class() != "due-date overdue" {
		t.Fatalf("unexpected annotation: %#v class=%q", d, d.Class())
	}
	if d.Formatted != "Mar 10, 2026, 11:00 AM" {
		t.Fatalf("unexpected formatted date: %q", d.Formatted)
	}

	later := now.Add(10 * 24 * time.Hour).Unix()
	d, _ = Annotate(Task{ID: 2, DueDate: &later}, now, time.UTC)
	if d.Label != DueNone || d.Class() != "due-date" || d.DaysLeft != 10 {
		t.Fatalf("unexpected annotation: %#v", d)
	}
}

func TestDateTimeLocalRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	epoch, err := ParseDateTimeLocal("2026-05-01T09:30", loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 5, 1, 7, 30, 0, 0, time.UTC).Unix()
	if epoch == nil || *epoch != want {
		t.Fatalf("expected %d, got %v", want, epoch)
	}
	if got := FormatDateTimeLocal(epoch, loc); got != "2026-05-01T09:30" {
		t.Fatalf("unexpected round trip: %q", got)
	}
}

func TestParseDateTimeLocalEdgeCases(t *testing.T) {
	if epoch, err := ParseDateTimeLocal("  ", time.UTC); err != nil || epoch != nil {
		t.Fatalf("expected nil for blank input, got %v %v", epoch, err)
	}
	if _, err := ParseDateTimeLocal("2026-05-01T09:30:15", time.UTC); err != nil {
		t.Fatalf("expected seconds to be accepted: %v", err)
	}
	if _, err := ParseDateTimeLocal("tomorrow", time.UTC); err == nil {
		t.Fatalf("expected error for garbage input")
	}
	if got := FormatDateTimeLocal(nil, time.UTC); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

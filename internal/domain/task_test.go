package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTask_Defaults(t *testing.T) {
	task, err := NewTask(NewTaskInput{
		Title:         "  Buy milk ",
		ScheduledDate: "2025-05-05T18:30:00Z",
	}, time.UTC, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Title != "Buy milk" {
		t.Fatalf("title not trimmed: %q", task.Title)
	}
	if task.Priority != PriorityMedium || task.Category != CategoryPersonal {
		t.Fatalf("want defaults medium/personal, got %s/%s", task.Priority, task.Category)
	}
	if !task.CreatedAt.Equal(base) {
		t.Fatalf("createdAt: want %s, got %s", base, task.CreatedAt)
	}
}

func TestNewTask_LocalDateUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	task, err := NewTask(NewTaskInput{Title: "x", ScheduledDate: "2025-05-05T21:00"}, loc, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, time.May, 5, 18, 0, 0, 0, time.UTC)
	if !task.ScheduledDate.Equal(want) {
		t.Fatalf("want %s, got %s", want, task.ScheduledDate)
	}
}

func TestNewTask_Validation(t *testing.T) {
	_, err := NewTask(NewTaskInput{
		Title:         "   ",
		ScheduledDate: "tomorrow-ish",
		Priority:      "urgent",
		Category:      "leisure",
	}, time.UTC, base)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want *ValidationError, got %T", err)
	}
	for _, field := range []string{"title", "scheduledDate", "priority", "category"} {
		if _, ok := verr.Details[field]; !ok {
			t.Fatalf("missing detail for %s: %v", field, verr.Details)
		}
	}
	if !strings.Contains(err.Error(), "title: is required") {
		t.Fatalf("error text: %s", err.Error())
	}
}

func TestNewTask_TitleTooLong(t *testing.T) {
	_, err := NewTask(NewTaskInput{
		Title:         strings.Repeat("a", MaxTitleLen+1),
		ScheduledDate: "2025-05-05T18:30:00Z",
	}, time.UTC, base)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestPatchInput_Patch(t *testing.T) {
	done := true
	date := "2025-06-01T09:00:00+02:00"
	patch, err := PatchInput{Completed: &done, ScheduledDate: &date}.Patch(time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task := patch.Apply(Task{ID: 7, Title: "keep"})
	if !task.Completed || task.Title != "keep" {
		t.Fatalf("unexpected task after patch: %+v", task)
	}
	want := time.Date(2025, time.June, 1, 7, 0, 0, 0, time.UTC)
	if !task.ScheduledDate.Equal(want) {
		t.Fatalf("want %s, got %s", want, task.ScheduledDate)
	}
}

func TestPatchInput_Invalid(t *testing.T) {
	empty := ""
	bad := Priority("whenever")
	_, err := PatchInput{Title: &empty, Priority: &bad}.Patch(time.UTC)
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Details) != 2 {
		t.Fatalf("want two validation details, got %v", err)
	}
	if !(TaskPatch{}).Empty() {
		t.Fatalf("zero patch must be empty")
	}
}

func TestParseScheduledDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-05-05T10:00:00Z", time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC), true},
		{"2025-05-05T10:00:00.5+01:00", time.Date(2025, 5, 5, 9, 0, 0, 5e8, time.UTC), true},
		{"2025-05-05 10:00", time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"05/05/2025", time.Time{}, false},
	}
	for _, c := range cases {
		got, err := ParseScheduledDate(c.in, nil)
		if c.ok != (err == nil) {
			t.Fatalf("%q: ok=%v err=%v", c.in, c.ok, err)
		}
		if c.ok && !got.Equal(c.want) {
			t.Fatalf("%q: want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestLocalizeTime(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Moscow")
	if got := LocalizeTime(base, loc); got != "15:00" {
		t.Fatalf("want 15:00, got %s", got)
	}
	if got := Title("high"); got != "High" {
		t.Fatalf("want High, got %s", got)
	}
}

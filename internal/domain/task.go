package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Category of a task.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
)

const (
	DefaultPriority = PriorityMedium
	DefaultCategory = CategoryPersonal

	MaxTitleLen = 200
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth:
		return true
	}
	return false
}

// Task is a single to-do item with a due instant.
type Task struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Priority      Priority  `json:"priority"`
	Category      Category  `json:"category"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewTaskInput is the client payload for creating a task.
type NewTaskInput struct {
	Title         string   `json:"title"`
	ScheduledDate string   `json:"scheduledDate"`
	Priority      Priority `json:"priority,omitempty"`
	Category      Category `json:"category,omitempty"`
}

// TaskPatch carries the fields of a partial update; nil means unchanged.
type TaskPatch struct {
	Title         *string
	ScheduledDate *time.Time
	Priority      *Priority
	Category      *Category
	Completed     *bool
}

// PatchInput is the client payload for a partial update.
type PatchInput struct {
	Title         *string   `json:"title"`
	ScheduledDate *string   `json:"scheduledDate"`
	Priority      *Priority `json:"priority"`
	Category      *Category `json:"category"`
	Completed     *bool     `json:"completed"`
}

// ErrValidation is the sentinel wrapped by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError lists the offending fields and why.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Details[f])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Details) == 0 {
		return nil
	}
	return e
}

// NewTask validates in and builds a Task ready to be stored.
// Omitted priority and category take their defaults.
func NewTask(in NewTaskInput, loc *time.Location, now time.Time) (Task, error) {
	var verr ValidationError

	title, msg := cleanTitle(in.Title)
	if msg != "" {
		verr.add("title", msg)
	}

	var due time.Time
	if strings.TrimSpace(in.ScheduledDate) == "" {
		verr.add("scheduledDate", "is required")
	} else if t, err := ParseScheduledDate(in.ScheduledDate, loc); err != nil {
		verr.add("scheduledDate", err.Error())
	} else {
		due = t
	}

	p := in.Priority
	if p == "" {
		p = DefaultPriority
	} else if !p.Valid() {
		verr.add("priority", "must be one of low, medium, high")
	}

	c := in.Category
	if c == "" {
		c = DefaultCategory
	} else if !c.Valid() {
		verr.add("category", "must be one of work, personal, shopping, health")
	}

	if err := verr.orNil(); err != nil {
		return Task{}, err
	}
	return Task{
		Title:         title,
		ScheduledDate: due,
		Priority:      p,
		Category:      c,
		CreatedAt:     now.UTC(),
	}, nil
}

// Patch validates in and converts it to a TaskPatch.
func (in PatchInput) Patch(loc *time.Location) (TaskPatch, error) {
	var (
		verr  ValidationError
		patch TaskPatch
	)

	if in.Title != nil {
		title, msg := cleanTitle(*in.Title)
		if msg != "" {
			verr.add("title", msg)
		}
		patch.Title = &title
	}
	if in.ScheduledDate != nil {
		t, err := ParseScheduledDate(*in.ScheduledDate, loc)
		if err != nil {
			verr.add("scheduledDate", err.Error())
		}
		patch.ScheduledDate = &t
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			verr.add("priority", "must be one of low, medium, high")
		}
		patch.Priority = in.Priority
	}
	if in.Category != nil {
		if !in.Category.Valid() {
			verr.add("category", "must be one of work, personal, shopping, health")
		}
		patch.Category = in.Category
	}
	patch.Completed = in.Completed

	if err := verr.orNil(); err != nil {
		return TaskPatch{}, err
	}
	return patch, nil
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.ScheduledDate == nil && p.Priority == nil &&
		p.Category == nil && p.Completed == nil
}

// Apply returns a copy of t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.ScheduledDate != nil {
		t.ScheduledDate = *p.ScheduledDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

func cleanTitle(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "is required"
	}
	if len([]rune(s)) > MaxTitleLen {
		return "", fmt.Sprintf("must be at most %d characters", MaxTitleLen)
	}
	return s, ""
}

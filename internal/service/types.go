// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the completion state of a task.
type Status string

const (
	// StatusPending is the state of a newly created task.
	StatusPending Status = "pending"

	// StatusCompleted marks a finished task.
	StatusCompleted Status = "completed"
)

// Toggle returns the opposite status. Anything that is not completed
// becomes completed.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// ParseStatus parses a status name (case-insensitive, trimmed).
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("invalid status: %s", s)
	}
}

// Task represents a single task record as reported by the backend.
type Task struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Status      Status `json:"status" yaml:"status"`
}

// Draft holds the fields sent when creating a task.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate checks that both title and description are non-blank.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTask)
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidTask)
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched by the backend.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// IsEmpty reports whether the patch sets no fields.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Validate rejects empty patches and blank title or description values.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrNoFieldsToUpdate
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTask)
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidTask)
	}
	return nil
}

// Apply returns a copy of t with the patch fields applied.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// FullPatch builds a patch carrying every editable field of t.
func FullPatch(t Task) Patch {
	title, desc, status := t.Title, t.Description, t.Status
	return Patch{Title: &title, Description: &desc, Status: &status}
}

// StatusPatch builds a patch that only changes the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

var (
	// ErrNotFound is returned when the backend has no task with the given id.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the backend rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTask is returned when client-side validation fails.
	ErrInvalidTask = errors.New("invalid task")

	// ErrNoFieldsToUpdate is returned for an empty patch.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

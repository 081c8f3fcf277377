// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// Each method issues exactly one backend request; there are no retries.
// Commands never talk to a backend directly, they go through taskapi.
type Service interface {
	// ListTasks returns every task in backend order.
	ListTasks(ctx context.Context) ([]Task, error)

	// GetTask returns a single task by id.
	// Returns an error matching ErrNotFound if the id is unknown.
	GetTask(ctx context.Context, id string) (Task, error)

	// CreateTask creates a task from a draft and returns the stored record.
	CreateTask(ctx context.Context, draft Draft) (Task, error)

	// UpdateTask applies a partial update and returns the stored record.
	UpdateTask(ctx context.Context, id string, patch Patch) (Task, error)

	// DeleteTask deletes a task by id.
	DeleteTask(ctx context.Context, id string) error
}

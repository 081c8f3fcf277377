// Package view holds the UI-independent task list and task form models.
// Renderers (the CLI and the web shell) read their state and call their
// command methods; neither model knows how it is displayed.
package view

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"taskman/internal/cache"
	"taskman/internal/service"
	"taskman/internal/taskapi"
)

// ListSnapshot is the renderable state of the task list.
type ListSnapshot struct {
	State cache.State
	// Tasks is non-nil only in the ready state. A ready list may be empty.
	Tasks []service.Task
	// Err is set only in the error state.
	Err error
}

// ListModel is the task list view: Loading, then Ready or Error.
type ListModel struct {
	api *taskapi.API
	log *slog.Logger

	mu    sync.Mutex
	snap  ListSnapshot
	unsub func()
	form  *FormModel
}

// NewListModel creates a list model in the loading state.
func NewListModel(api *taskapi.API, log *slog.Logger) *ListModel {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ListModel{
		api:  api,
		log:  log,
		snap: ListSnapshot{State: cache.StateLoading},
		form: NewFormModel(api, log),
	}
}

// Mount subscribes to the list query. It returns once the first fetch has
// settled.
func (m *ListModel) Mount(ctx context.Context) {
	m.mu.Lock()
	if m.unsub != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	unsub := m.api.SubscribeTasks(ctx, m.update)

	m.mu.Lock()
	m.unsub = unsub
	m.mu.Unlock()
}

// Unmount drops the subscription; later invalidations no longer refresh
// this model.
func (m *ListModel) Unmount() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (m *ListModel) update(state cache.State, tasks []service.Task, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch state {
	case cache.StateReady:
		if tasks == nil {
			tasks = []service.Task{}
		}
		m.snap = ListSnapshot{State: state, Tasks: tasks}
	case cache.StateError:
		m.log.Error("error loading tasks", "err", err)
		m.snap = ListSnapshot{State: state, Err: err}
	default:
		m.snap = ListSnapshot{State: state}
	}
}

// Snapshot returns the current renderable state.
func (m *ListModel) Snapshot() ListSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snap
	if s.Tasks != nil {
		tasks := make([]service.Task, len(s.Tasks))
		copy(tasks, s.Tasks)
		s.Tasks = tasks
	}
	return s
}

// Find returns the listed task with the given id.
func (m *ListModel) Find(id string) (service.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.snap.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Delete removes a task without confirmation. On failure the error is
// logged and the displayed list is left as it was.
func (m *ListModel) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: task id required", service.ErrInvalidTask)
	}
	if err := m.api.DeleteTask(ctx, id); err != nil {
		m.log.Error("failed to delete task", "id", id, "err", err)
		return err
	}
	return nil
}

// ToggleStatus flips pending and completed by sending the opposite of the
// task's current status.
func (m *ListModel) ToggleStatus(ctx context.Context, task service.Task) (service.Task, error) {
	updated, err := m.api.ToggleStatus(ctx, task)
	if err != nil {
		m.log.Error("failed to update task status", "id", task.ID, "err", err)
		return service.Task{}, err
	}
	return updated, nil
}

// OpenAdd opens the form with an empty draft.
func (m *ListModel) OpenAdd() *FormModel {
	m.form.OpenAdd()
	return m.form
}

// OpenEdit opens the form bound to task.
func (m *ListModel) OpenEdit(task service.Task) *FormModel {
	m.form.OpenEdit(task)
	return m.form
}

// Form returns the list's form model.
func (m *ListModel) Form() *FormModel {
	return m.form
}

// Package taskapi is the typed query and mutation surface over a task
// service. Queries are cached under the "Task" tag; every successful
// mutation invalidates that tag so subscribed queries re-fetch.
package taskapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"taskman/internal/cache"
	"taskman/internal/service"
)

// TagTask is the resource tag provided by task queries and invalidated by
// task mutations.
const TagTask cache.Tag = "Task"

const listKey = "getTasks"

var taskTags = []cache.Tag{TagTask}

// API wraps a service.Service with a query cache.
type API struct {
	svc   service.Service
	cache *cache.Cache
	log   *slog.Logger
}

// New creates an API. A nil cache gets a fresh one; a nil logger discards.
func New(svc service.Service, c *cache.Cache, log *slog.Logger) *API {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c == nil {
		c = cache.New(log)
	}
	return &API{svc: svc, cache: c, log: log}
}

// Cache exposes the underlying cache.
func (a *API) Cache() *cache.Cache {
	return a.cache
}

// Logger returns the logger the API was created with.
func (a *API) Logger() *slog.Logger {
	return a.log
}

func (a *API) fetchList(ctx context.Context) (any, error) {
	return a.svc.ListTasks(ctx)
}

func getKey(id string) string {
	return "getSingleTask(" + id + ")"
}

// ListTasks runs the list query. The returned slice is a copy.
func (a *API) ListTasks(ctx context.Context) ([]service.Task, error) {
	v, err := a.cache.Query(ctx, listKey, taskTags, a.fetchList)
	if err != nil {
		a.log.Debug("failed to load tasks", "err", err)
		return nil, err
	}
	return copyTasks(v), nil
}

// SubscribeTasks subscribes to the list query. The listener receives the
// snapshot state and, when ready, a copy of the task list.
func (a *API) SubscribeTasks(ctx context.Context, l func(cache.State, []service.Task, error)) func() {
	return a.cache.Subscribe(ctx, listKey, taskTags, a.fetchList, func(s cache.Snapshot) {
		var tasks []service.Task
		if s.State == cache.StateReady {
			tasks = copyTasks(s.Value)
		}
		l(s.State, tasks, s.Err)
	})
}

// GetTask runs the get-one query.
func (a *API) GetTask(ctx context.Context, id string) (service.Task, error) {
	v, err := a.cache.Query(ctx, getKey(id), taskTags, func(ctx context.Context) (any, error) {
		return a.svc.GetTask(ctx, id)
	})
	if err != nil {
		a.log.Debug("failed to load task", "id", id, "err", err)
		return service.Task{}, err
	}
	return v.(service.Task), nil
}

// CreateTask validates and creates a task, then invalidates the tag.
func (a *API) CreateTask(ctx context.Context, draft service.Draft) (service.Task, error) {
	if err := draft.Validate(); err != nil {
		return service.Task{}, err
	}
	task, err := a.svc.CreateTask(ctx, draft)
	if err != nil {
		a.log.Debug("failed to save task", "err", err)
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}
	a.cache.Invalidate(ctx, TagTask)
	return task, nil
}

// UpdateTask validates and applies a partial update, then invalidates the tag.
func (a *API) UpdateTask(ctx context.Context, id string, patch service.Patch) (service.Task, error) {
	if err := patch.Validate(); err != nil {
		return service.Task{}, err
	}
	task, err := a.svc.UpdateTask(ctx, id, patch)
	if err != nil {
		a.log.Debug("failed to update task", "id", id, "err", err)
		return service.Task{}, fmt.Errorf("update task: %w", err)
	}
	a.cache.Invalidate(ctx, TagTask)
	return task, nil
}

// ToggleStatus sends only the opposite of the task's current status.
func (a *API) ToggleStatus(ctx context.Context, task service.Task) (service.Task, error) {
	return a.UpdateTask(ctx, task.ID, service.StatusPatch(task.Status.Toggle()))
}

// DeleteTask deletes a task, then invalidates the tag.
func (a *API) DeleteTask(ctx context.Context, id string) error {
	if err := a.svc.DeleteTask(ctx, id); err != nil {
		a.log.Debug("failed to delete task", "id", id, "err", err)
		return fmt.Errorf("delete task: %w", err)
	}
	a.cache.Invalidate(ctx, TagTask)
	return nil
}

func copyTasks(v any) []service.Task {
	src, _ := v.([]service.Task)
	out := make([]service.Task, len(src))
	copy(out, src)
	return out
}

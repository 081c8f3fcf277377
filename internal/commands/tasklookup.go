package commands

import (
	"context"
	"errors"
	"fmt"

	"taskman/internal/cache"
	"taskman/internal/service"
	"taskman/internal/taskapi"
	"taskman/internal/view"
)

// resolveTask finds the task a reference points at. Positions are resolved
// against the mounted list; ids are looked up in the list first and fetched
// with the get-one query otherwise.
func resolveTask(ctx context.Context, api *taskapi.API, list *view.ListModel, ref TaskRef) (service.Task, error) {
	snap := list.Snapshot()
	if snap.State == cache.StateError {
		return service.Task{}, fmt.Errorf("error loading tasks: %w", snap.Err)
	}

	if ref.ID == "" {
		if ref.Index > len(snap.Tasks) {
			return service.Task{}, &refError{msg: fmt.Sprintf("task number out of range: %d", ref.Index)}
		}
		return snap.Tasks[ref.Index-1], nil
	}

	if task, ok := list.Find(ref.ID); ok {
		return task, nil
	}
	task, err := api.GetTask(ctx, ref.ID)
	if errors.Is(err, service.ErrNotFound) {
		return service.Task{}, &refError{msg: "task not found: " + ref.ID}
	}
	if err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// mountList creates a list model and loads it.
func mountList(ctx context.Context, api *taskapi.API) *view.ListModel {
	list := view.NewListModel(api, api.Logger())
	list.Mount(ctx)
	return list
}

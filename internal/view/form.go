package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"taskman/internal/service"
	"taskman/internal/taskapi"
)

// Mode selects what a form submit does.
type Mode int

const (
	// ModeAdd creates a new task.
	ModeAdd Mode = iota

	// ModeEdit updates the bound task.
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "add"
}

// ErrFormClosed is returned when submitting a closed form.
var ErrFormClosed = errors.New("form is not open")

// FormModel is the add/edit task form.
type FormModel struct {
	api *taskapi.API
	log *slog.Logger

	mu          sync.Mutex
	open        bool
	mode        Mode
	task        service.Task
	title       string
	description string
}

// NewFormModel creates a closed form.
func NewFormModel(api *taskapi.API, log *slog.Logger) *FormModel {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FormModel{api: api, log: log}
}

// OpenAdd opens the form in add mode with an empty draft.
func (f *FormModel) OpenAdd() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.mode = ModeAdd
	f.task = service.Task{}
	f.title, f.description = "", ""
}

// OpenEdit opens the form in edit mode bound to task.
func (f *FormModel) OpenEdit(task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.mode = ModeEdit
	f.task = task
	f.title, f.description = task.Title, task.Description
}

// Close hides the form without submitting. The draft is kept.
func (f *FormModel) Close() {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
}

// IsOpen reports whether the form is shown.
func (f *FormModel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Mode returns the current mode.
func (f *FormModel) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// TaskID returns the id of the task being edited, or "" in add mode.
func (f *FormModel) TaskID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.task.ID
}

// Title returns the draft title.
func (f *FormModel) Title() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title
}

// Description returns the draft description.
func (f *FormModel) Description() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.description
}

// SetTitle updates the draft title.
func (f *FormModel) SetTitle(s string) {
	f.mu.Lock()
	f.title = s
	f.mu.Unlock()
}

// SetDescription updates the draft description.
func (f *FormModel) SetDescription(s string) {
	f.mu.Lock()
	f.description = s
	f.mu.Unlock()
}

// Submit creates (add mode) or updates with every current field (edit
// mode). On success the form closes and the draft resets; on failure the
// form stays open with the draft intact and the error is logged.
func (f *FormModel) Submit(ctx context.Context) (service.Task, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return service.Task{}, ErrFormClosed
	}
	mode, task := f.mode, f.task
	draft := service.Draft{Title: f.title, Description: f.description}
	f.mu.Unlock()

	saved, err := f.save(ctx, mode, task, draft)
	if err != nil {
		f.log.Error("failed to save task", "mode", mode.String(), "err", err)
		return service.Task{}, err
	}

	f.mu.Lock()
	f.open = false
	f.task = service.Task{}
	f.title, f.description = "", ""
	f.mu.Unlock()
	return saved, nil
}

func (f *FormModel) save(ctx context.Context, mode Mode, task service.Task, draft service.Draft) (service.Task, error) {
	if err := draft.Validate(); err != nil {
		return service.Task{}, err
	}
	if mode == ModeAdd {
		return f.api.CreateTask(ctx, draft)
	}
	task.Title = draft.Title
	task.Description = draft.Description
	return f.api.UpdateTask(ctx, task.ID, service.FullPatch(task))
}

package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskman/internal/cache"
	"taskman/internal/service"
	"taskman/internal/taskapi"
	"taskman/internal/view"
)

const pageTitle = "Task Management"

// Web handlers

// listSnapshot returns the mounted list's state. A failed load is retried
// once, so reloading the page or the collection recovers from an outage.
func (s *Server) listSnapshot(ctx context.Context) view.ListSnapshot {
	snap := s.list.Snapshot()
	if snap.State == cache.StateError {
		s.api.Cache().Invalidate(ctx, taskapi.TagTask)
		snap = s.list.Snapshot()
	}
	return snap
}

func (s *Server) handleIndex(c *gin.Context) {
	snap := s.listSnapshot(c.Request.Context())

	status := http.StatusOK
	if snap.State == cache.StateError {
		status = http.StatusBadGateway
	}
	c.HTML(status, "index.html", gin.H{
		"title":   pageTitle,
		"loading": snap.State == cache.StateLoading,
		"failed":  snap.State == cache.StateError,
		"tasks":   snap.Tasks,
	})
}

func (s *Server) handleNew(c *gin.Context) {
	form := view.NewFormModel(s.api, s.log)
	form.OpenAdd()
	s.renderForm(c, http.StatusOK, form, "")
}

func (s *Server) handleCreate(c *gin.Context) {
	form := view.NewFormModel(s.api, s.log)
	form.OpenAdd()
	s.submitForm(c, form)
}

func (s *Server) handleEdit(c *gin.Context) {
	task, err := s.lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	form := view.NewFormModel(s.api, s.log)
	form.OpenEdit(task)
	s.renderForm(c, http.StatusOK, form, "")
}

func (s *Server) handleUpdate(c *gin.Context) {
	task, err := s.lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	form := view.NewFormModel(s.api, s.log)
	form.OpenEdit(task)
	s.submitForm(c, form)
}

func (s *Server) handleToggle(c *gin.Context) {
	task, err := s.lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	// A failure is logged by the list; the page shows the unchanged task.
	_, _ = s.list.ToggleStatus(c.Request.Context(), task)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleDelete(c *gin.Context) {
	// A failure is logged by the list; the page shows the unchanged list.
	_ = s.list.Delete(c.Request.Context(), c.Param("id"))
	c.Redirect(http.StatusSeeOther, "/")
}

// submitForm copies the posted fields into form and submits it. On failure
// the form is shown again with the draft intact.
func (s *Server) submitForm(c *gin.Context, form *view.FormModel) {
	form.SetTitle(c.PostForm("title"))
	form.SetDescription(c.PostForm("description"))

	if _, err := form.Submit(c.Request.Context()); err != nil {
		s.renderForm(c, statusFor(err), form, err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) renderForm(c *gin.Context, status int, form *view.FormModel, msg string) {
	action := "/tasks"
	if form.Mode() == view.ModeEdit {
		action = "/tasks/" + form.TaskID()
	}
	c.HTML(status, "form.html", gin.H{
		"title":       pageTitle,
		"mode":        form.Mode().String(),
		"action":      action,
		"taskTitle":   form.Title(),
		"description": form.Description(),
		"error":       msg,
	})
}

func (s *Server) renderError(c *gin.Context, err error) {
	msg := err.Error()
	if errors.Is(err, service.ErrNotFound) {
		msg = "Task not found"
	}
	c.HTML(statusFor(err), "error.html", gin.H{
		"title": pageTitle,
		"error": msg,
	})
}

// lookup returns the listed task with id, falling back to the get-one query.
func (s *Server) lookup(ctx context.Context, id string) (service.Task, error) {
	if task, ok := s.list.Find(id); ok {
		return task, nil
	}
	return s.api.GetTask(ctx, id)
}

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidTask), errors.Is(err, service.ErrNoFieldsToUpdate):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

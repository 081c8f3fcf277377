package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskman/internal/cache"
	"taskman/internal/service"
	"taskman/internal/view"
)

const maxBodySize = 1 << 20 // 1MB

// API handlers

func (s *Server) handleAPIList(c *gin.Context) {
	snap := s.listSnapshot(c.Request.Context())
	switch snap.State {
	case cache.StateReady:
		c.JSON(http.StatusOK, gin.H{"data": snap.Tasks})
	case cache.StateError:
		c.JSON(statusFor(snap.Err), gin.H{"error": fmt.Sprintf("error loading tasks: %v", snap.Err)})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "loading"})
	}
}

func (s *Server) handleAPIGet(c *gin.Context) {
	task, err := s.lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (s *Server) handleAPICreate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var draft service.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	form := view.NewFormModel(s.api, s.log)
	form.OpenAdd()
	form.SetTitle(draft.Title)
	form.SetDescription(draft.Description)
	task, err := form.Submit(c.Request.Context())
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": task})
}

// handleAPIUpdate applies a partial update: only the fields present in the
// body are sent to the backend.
func (s *Server) handleAPIUpdate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var patch service.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if patch.Status != nil {
		if _, err := service.ParseStatus(string(*patch.Status)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	task, err := s.api.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (s *Server) handleAPIToggle(c *gin.Context) {
	task, err := s.lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}
	updated, err := s.list.ToggleStatus(c.Request.Context(), task)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) handleAPIDelete(c *gin.Context) {
	if err := s.list.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func apiError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

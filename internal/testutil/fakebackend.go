package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"taskman/internal/service"
)

// FakeBackend serves the task REST API over a FakeService, using the
// backend's wire shape ("_id" keys, {"data": ...} envelopes).
type FakeBackend struct {
	Service *FakeService
	Server  *httptest.Server

	// LastAuth is the Authorization header of the most recent request.
	LastAuth atomic.Value
	// LastRequestID is the X-Request-ID header of the most recent request.
	LastRequestID atomic.Value
	// LastBody is the raw JSON body of the most recent write request.
	LastBody atomic.Value
}

type wireTask struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func toWire(t service.Task) wireTask {
	return wireTask{ID: t.ID, Title: t.Title, Description: t.Description, Status: string(t.Status)}
}

// NewFakeBackend starts an httptest server. Close it with Server.Close.
func NewFakeBackend(svc *FakeService) *FakeBackend {
	gin.SetMode(gin.TestMode)
	fb := &FakeBackend{Service: svc}
	fb.LastAuth.Store("")
	fb.LastRequestID.Store("")
	fb.LastBody.Store("")

	r := gin.New()
	r.Use(func(c *gin.Context) {
		fb.LastAuth.Store(c.GetHeader("Authorization"))
		fb.LastRequestID.Store(c.GetHeader("X-Request-ID"))
		c.Next()
	})
	r.GET("/tasks", fb.list)
	r.GET("/tasks/:id", fb.get)
	r.POST("/tasks", fb.create)
	r.PUT("/tasks/:id", fb.update)
	r.DELETE("/tasks/:id", fb.remove)

	fb.Server = httptest.NewServer(r)
	return fb
}

// URL returns the base URL of the fake backend.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL + "/"
}

func (fb *FakeBackend) list(c *gin.Context) {
	tasks, err := fb.Service.ListTasks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]wireTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toWire(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (fb *FakeBackend) get(c *gin.Context) {
	task, err := fb.Service.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toWire(task)})
}

func (fb *FakeBackend) create(c *gin.Context) {
	body, _ := c.GetRawData()
	fb.LastBody.Store(string(body))

	var draft service.Draft
	if err := json.Unmarshal(body, &draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	task, err := fb.Service.CreateTask(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWire(task))
}

func (fb *FakeBackend) update(c *gin.Context) {
	body, _ := c.GetRawData()
	fb.LastBody.Store(string(body))

	var patch service.Patch
	if err := json.Unmarshal(body, &patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	task, err := fb.Service.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(task))
}

func (fb *FakeBackend) remove(c *gin.Context) {
	if err := fb.Service.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTask):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

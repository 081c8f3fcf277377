// Package web serves the task list and task form over HTTP, with a JSON
// mirror of the same operations under /api.
package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskman/internal/output"
	"taskman/internal/taskapi"
	"taskman/internal/view"
)

const shutdownTimeout = 5 * time.Second

//go:embed templates/*.html
var templatesFS embed.FS

// Server is the taskman web server.
type Server struct {
	api    *taskapi.API
	list   *view.ListModel
	log    *slog.Logger
	router *gin.Engine
}

// NewServer creates a web server over api. A nil logger discards.
func NewServer(api *taskapi.API, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		api:    api,
		list:   view.NewListModel(api, log),
		log:    log,
		router: router,
	}

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"statusLabel": output.StatusLabel,
	}).ParseFS(templatesFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	// Web routes
	router.GET("/", s.handleIndex)
	router.GET("/tasks/new", s.handleNew)
	router.POST("/tasks", s.handleCreate)
	router.GET("/tasks/:id/edit", s.handleEdit)
	router.POST("/tasks/:id", s.handleUpdate)
	router.POST("/tasks/:id/toggle", s.handleToggle)
	router.POST("/tasks/:id/delete", s.handleDelete)

	// API routes
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/tasks", s.handleAPIList)
		apiGroup.GET("/tasks/:id", s.handleAPIGet)
		apiGroup.POST("/tasks", s.handleAPICreate)
		apiGroup.PUT("/tasks/:id", s.handleAPIUpdate)
		apiGroup.PATCH("/tasks/:id", s.handleAPIUpdate)
		apiGroup.POST("/tasks/:id/toggle", s.handleAPIToggle)
		apiGroup.DELETE("/tasks/:id", s.handleAPIDelete)
	}

	return s
}

// Mount loads the task list and keeps it subscribed until Unmount.
func (s *Server) Mount(ctx context.Context) {
	s.list.Mount(ctx)
}

// Unmount drops the list subscription.
func (s *Server) Unmount() {
	s.list.Unmount()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.Mount(ctx)
	defer s.Unmount()

	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

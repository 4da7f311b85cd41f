package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/manager"
	"tasktracker/internal/models"
)

// Tracker is the task store as seen by the HTTP layer. *manager.Backed
// satisfies it.
type Tracker interface {
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	CreateEpic(ctx context.Context, e models.Epic) (models.Epic, error)
	CreateSubtask(ctx context.Context, s models.Subtask) (models.Subtask, error)

	UpdateTask(ctx context.Context, t models.Task) (models.Task, error)
	UpdateEpic(ctx context.Context, e models.Epic) (models.Epic, error)
	UpdateSubtask(ctx context.Context, s models.Subtask) (models.Subtask, error)

	GetTaskByID(id int64) (models.Task, error)
	GetEpicByID(id int64) (models.Epic, error)
	GetSubtaskByID(id int64) (models.Subtask, error)
	Kind(id int64) (models.Kind, bool)

	GetTasks() []models.Task
	GetEpics() []models.Epic
	GetSubtasks() []models.Subtask
	GetSubtasksOf(epicID int64) []models.Subtask
	GetHistory() []models.Entity
	GetPrioritized() []models.Entity

	DeleteTaskByID(ctx context.Context, id int64) error
	DeleteEpicByID(ctx context.Context, id int64) error
	DeleteSubtaskByID(ctx context.Context, id int64) error
	DeleteAllTasks(ctx context.Context) error
	DeleteAllEpics(ctx context.Context) error
	DeleteAllSubtasks(ctx context.Context) error
}

var _ Tracker = (*manager.Backed)(nil)

// Server provides HTTP handlers for the task tracker.
type Server struct {
	engine       *gin.Engine
	tracker      Tracker
	logger       *slog.Logger
	historyLimit int
}

// New constructs the HTTP server with routes and middleware configured.
// historyLimit caps /history responses to the most recent entries; zero
// means unbounded.
func New(tracker Tracker, logger *slog.Logger, historyLimit int) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))

	srv := &Server{
		engine:       router,
		tracker:      tracker,
		logger:       logger,
		historyLimit: historyLimit,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	tasks := s.engine.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleSaveTask)
		tasks.DELETE("", s.handleDeleteAllTasks)
		tasks.GET(":id", s.handleGetTask)
		tasks.PUT(":id", s.handleSaveTask)
		tasks.DELETE(":id", s.handleDeleteTask)
	}

	epics := s.engine.Group("/epics")
	{
		epics.GET("", s.handleListEpics)
		epics.POST("", s.handleSaveEpic)
		epics.DELETE("", s.handleDeleteAllEpics)
		epics.GET(":id", s.handleGetEpic)
		epics.PUT(":id", s.handleSaveEpic)
		epics.DELETE(":id", s.handleDeleteEpic)
		epics.GET(":id/subtasks", s.handleListEpicSubtasks)
	}

	subtasks := s.engine.Group("/subtasks")
	{
		subtasks.GET("", s.handleListSubtasks)
		subtasks.POST("", s.handleSaveSubtask)
		subtasks.DELETE("", s.handleDeleteAllSubtasks)
		subtasks.GET(":id", s.handleGetSubtask)
		subtasks.PUT(":id", s.handleSaveSubtask)
		subtasks.DELETE(":id", s.handleDeleteSubtask)
	}

	s.engine.GET("/history", s.handleHistory)
	s.engine.GET("/prioritized", s.handlePrioritized)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// statusFor maps store errors to HTTP status codes. Scheduling conflicts
// use 406 so clients can tell them apart from malformed requests.
func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrSchedulingConflict):
		return http.StatusNotAcceptable
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrInvalidReference),
		errors.Is(err, manager.ErrInvalidItem),
		errors.Is(err, manager.ErrDuplicateID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.Request.Context(), level, "request failed",
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondStoreError picks the status code from err itself.
func (s *Server) respondStoreError(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
)

// Scheduler is the part of scheduler.Scheduler the handlers drive.
type Scheduler interface {
	Schedule(t domain.Task)
	Clear(taskID int64)
	Sync(tasks []domain.Task)
	Refresh() scheduler.Permission
	HasPermission() bool
	RequestPermission(ctx context.Context) (bool, error)
	TestDesktopNotification(ctx context.Context) bool
	Count() int
	IsScheduled(taskID int64) bool
}

// Push is the browser channel: WebSocket endpoint, list-changed events and
// permission reports.
type Push interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	NotifyTasksChanged()
	SetPermission(ctx context.Context, p scheduler.Permission) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Repo      store.Repo
	Scheduler Scheduler
	Push      Push
	Log       *zap.Logger
	Location  *time.Location
	Now       func() time.Time
	Mode      string // gin mode: release|debug|test
}

// Server is the task HTTP API.
type Server struct {
	repo   store.Repo
	sched  Scheduler
	push   Push
	log    *zap.Logger
	loc    *time.Location
	now    func() time.Time
	router *gin.Engine
}

// permissionTimeout bounds how long a request waits for the user to answer the prompt.
const permissionTimeout = 2 * time.Minute

// NewServer builds the router.
func NewServer(d Deps) *Server {
	if d.Mode != "" {
		gin.SetMode(d.Mode)
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	router := gin.New()
	router.Use(
		gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
			d.Log.Error("handler panic", zap.Any("panic", err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}),
		requestLogger(d.Log),
		cors(),
	)

	s := &Server{
		repo:   d.Repo,
		sched:  d.Scheduler,
		push:   d.Push,
		log:    d.Log,
		loc:    d.Location,
		now:    d.Now,
		router: router,
	}

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handlePatchTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.GET("/tasks/:id/notifications", s.handleTaskNotifications)

		api.GET("/notifications", s.handleNotificationStatus)
		api.POST("/notifications/permission", s.handleRequestPermission)
		api.PUT("/notifications/permission", s.handleReportPermission)
		api.POST("/notifications/test", s.handleTestNotification)

		api.GET("/ws", gin.WrapF(s.push.HandleWebSocket))
	}

	return s
}

// Handler exposes the router for http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// Resync reloads every task and hands the list to the scheduler.
func (s *Server) Resync(ctx context.Context) error {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	s.sched.Sync(tasks)
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

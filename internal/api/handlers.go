package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
)

// Task handlers

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.repo.ListTasks(c.Request.Context())
	if err != nil {
		s.internalError(c, "list tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in domain.NewTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}

	task, err := domain.NewTask(in, s.loc, s.now())
	if err != nil {
		validationError(c, err)
		return
	}
	if err := s.repo.CreateTask(c.Request.Context(), &task); err != nil {
		s.internalError(c, "create task", err)
		return
	}

	s.sched.Schedule(task)
	s.push.NotifyTasksChanged()
	s.log.Info("task created", zap.Int64("taskID", task.ID), zap.Time("due", task.ScheduledDate))
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	task, err := s.repo.GetTask(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, "get task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handlePatchTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var in domain.PatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	patch, err := in.Patch(s.loc)
	if err != nil {
		validationError(c, err)
		return
	}
	if patch.Empty() {
		s.handleGetTask(c)
		return
	}

	task, err := s.repo.UpdateTask(c.Request.Context(), id, patch)
	if err != nil {
		s.storeError(c, "update task", err)
		return
	}

	if task.Completed {
		s.sched.Clear(task.ID)
	} else {
		s.sched.Schedule(*task)
	}
	s.push.NotifyTasksChanged()
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if err := s.repo.DeleteTask(c.Request.Context(), id); err != nil {
		s.storeError(c, "delete task", err)
		return
	}

	s.sched.Clear(id)
	s.push.NotifyTasksChanged()
	s.log.Info("task deleted", zap.Int64("taskID", id))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTaskNotifications(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"taskId":    id,
		"scheduled": s.sched.IsScheduled(id),
	})
}

// Notification handlers

func (s *Server) status() gin.H {
	p := s.sched.Refresh()
	return gin.H{
		"permission":    p,
		"hasPermission": s.sched.HasPermission(),
		"scheduled":     s.sched.Count(),
	}
}

func (s *Server) handleNotificationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) handleRequestPermission(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), permissionTimeout)
	defer cancel()

	granted, err := s.sched.RequestPermission(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "granted": false})
		return
	}
	st := s.status()
	st["granted"] = granted
	c.JSON(http.StatusOK, st)
}

type permissionReport struct {
	Permission string `json:"permission" binding:"required,oneof=default granted denied"`
}

func (s *Server) handleReportPermission(c *gin.Context) {
	var in permissionReport
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	if err := s.push.SetPermission(c.Request.Context(), scheduler.Permission(in.Permission)); err != nil {
		s.log.Warn("persist permission failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) handleTestNotification(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), permissionTimeout)
	defer cancel()
	c.JSON(http.StatusOK, gin.H{"ok": s.sched.TestDesktopNotification(ctx)})
}

// Helpers

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

func badBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request body",
		"details": gin.H{"body": err.Error()},
	})
}

func validationError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": verr.Details,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) storeError(c *gin.Context, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	s.internalError(c, op, err)
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
}

package handler

import (
	"net/http"
	"time"

	"taskroom/internal/domain"
	"taskroom/internal/service"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	taskService service.TaskService
	log         logger.Logger
}

func NewTaskHandler(taskService service.TaskService, log logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	AssignedTo  string  `json:"assigned_to" binding:"required,uuid"`
	DueDate     *string `json:"due_date,omitempty"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// EditTaskRequest distinguishes omitted fields (nil, leave untouched) from
// explicitly empty ones. An empty due_date string clears the due date.
type EditTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func parseDueDate(raw string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Date-only input comes from date pickers.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (h *TaskHandler) roomAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, uuid.Nil, false
	}

	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return uuid.Nil, uuid.Nil, false
	}

	return roomID, userID.(uuid.UUID), true
}

func (h *TaskHandler) List(c *gin.Context) {
	roomID, userID, ok := h.roomAndUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
			return
		}
		tasks = service.FilterTasksByStatus(tasks, status)
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Create(c *gin.Context) {
	roomID, userID, ok := h.roomAndUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	assignedTo, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee id"})
		return
	}

	draft := &domain.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		AssignedTo:  assignedTo,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date"})
			return
		}
		draft.DueDate = due
	}

	task, err := h.taskService.Add(c.Request.Context(), roomID, userID, draft)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	roomID, userID, ok := h.roomAndUser(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	status := domain.TaskStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
		return
	}

	if err := h.taskService.UpdateStatus(c.Request.Context(), roomID, userID, taskID, status); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task status updated"})
}

func (h *TaskHandler) Edit(c *gin.Context) {
	roomID, userID, ok := h.roomAndUser(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req EditTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	patch := &domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
			return
		}
		patch.Status = &status
	}
	if req.AssignedTo != nil {
		assignedTo, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee id"})
			return
		}
		patch.AssignedTo = &assignedTo
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			patch.ClearDueDate = true
		} else {
			due, err := parseDueDate(*req.DueDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date"})
				return
			}
			patch.DueDate = due
		}
	}

	if err := h.taskService.Edit(c.Request.Context(), roomID, userID, taskID, patch); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	roomID, userID, ok := h.roomAndUser(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), roomID, userID, taskID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/model"
	"github.com/taskloop/backend/internal/service"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List godoc
// @Summary List the authenticated user's tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ApiResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	user := CurrentUser(c)
	tasks, err := h.svc.List(c.Request.Context(), user.ID)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, model.ApiResponse{
		Success: true,
		Data:    gin.H{"tasks": tasks},
		Message: "Tasks retrieved successfully",
	})
}

// Get godoc
// @Summary Get one task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param task_id path string true "Task ID"
// @Success 200 {object} model.ApiResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{task_id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	user := CurrentUser(c)
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.svc.Get(c.Request.Context(), user.ID, taskID)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ApiResponse{
		Success: true,
		Data:    gin.H{"task": task},
		Message: "Task retrieved successfully",
	})
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.TaskCreateRequest true "Task fields"
// @Success 200 {object} model.ApiResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	user := CurrentUser(c)
	var req model.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	task, err := h.svc.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ApiResponse{
		Success: true,
		Data:    gin.H{"task": task},
		Message: "Task created successfully",
	})
}

// Update godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param task_id path string true "Task ID"
// @Param request body model.TaskUpdateRequest true "Fields to change"
// @Success 200 {object} model.ApiResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{task_id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	user := CurrentUser(c)
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req model.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	task, err := h.svc.Update(c.Request.Context(), user.ID, taskID, req)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ApiResponse{
		Success: true,
		Data:    gin.H{"task": task},
		Message: "Task updated successfully",
	})
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param task_id path string true "Task ID"
// @Success 200 {object} model.ApiResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{task_id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), user.ID, taskID); err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ApiResponse{
		Success: true,
		Message: "Task deleted successfully",
	})
}

// Toggle godoc
// @Summary Toggle task completion
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param task_id path string true "Task ID"
// @Param request body model.TaskToggleRequest true "Completion flag"
// @Success 200 {object} model.ApiResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{task_id}/status [patch]
func (h *TaskHandler) Toggle(c *gin.Context) {
	user := CurrentUser(c)
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req model.TaskToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	task, err := h.svc.Toggle(c.Request.Context(), user.ID, taskID, req.Completed)
	if err != nil {
		writeTaskError(c, err)
		return
	}

	message := "Task marked as pending"
	if req.Completed {
		message = "Task marked as completed"
	}
	c.JSON(http.StatusOK, model.ApiResponse{
		Success: true,
		Data:    gin.H{"task": task},
		Message: message,
	})
}

// parseTaskID treats an unparseable task id the same as an unknown one:
// 404 either way, so nothing is learned from the shape of the identifier.
func parseTaskID(c *gin.Context) (uuid.UUID, bool) {
	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Task not found"})
		return uuid.Nil, false
	}
	return taskID, true
}

func writeTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Task not found"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/db"
	"github.com/taskloop/backend/internal/model"
)

type TaskStore interface {
	ListTasks(ctx context.Context, userID uuid.UUID) ([]model.Task, error)
	ListTasksFiltered(ctx context.Context, userID uuid.UUID, status, priority string, limit, offset int) ([]model.Task, error)
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error)
	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
	SetTaskCompletion(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*model.Task, error)
}

// TaskService scopes every operation to the authenticated subject. A task
// that exists under another owner is reported exactly like one that does
// not exist.
type TaskService struct {
	store TaskStore
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

func (s *TaskService) List(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

func (s *TaskService) ListFiltered(ctx context.Context, userID uuid.UUID, status, priority string, limit, offset int) ([]model.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTasksFiltered(ctx, userID, status, priority, limit, offset)
}

func (s *TaskService) Get(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// Create stamps the owner from the authenticated subject. The request type
// carries no owner field, so a forged owner in the payload never reaches
// this point.
func (s *TaskService) Create(ctx context.Context, userID uuid.UUID, req model.TaskCreateRequest) (*model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	task := model.Task{
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Status:      defaultString(req.Status, model.TaskStatusPending),
		Priority:    defaultString(req.Priority, "medium"),
		DueDate:     req.DueDate,
	}
	return s.store.CreateTask(ctx, task)
}

func (s *TaskService) Update(ctx context.Context, userID, taskID uuid.UUID, req model.TaskUpdateRequest) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, ErrInvalidInput
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	updated, err := s.store.UpdateTask(ctx, *task)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.store.DeleteTask(ctx, userID, taskID); err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *TaskService) Toggle(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*model.Task, error) {
	task, err := s.store.SetTaskCompletion(ctx, userID, taskID, completed)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/taskloop/backend/internal/model"
)

type fakeTaskStore struct {
	tasks map[uuid.UUID]*model.Task

	lastLimit  int
	lastOffset int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[uuid.UUID]*model.Task{}}
}

func (f *fakeTaskStore) ListTasks(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	for _, task := range f.tasks {
		if task.UserID == userID {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (f *fakeTaskStore) ListTasksFiltered(ctx context.Context, userID uuid.UUID, status, priority string, limit, offset int) ([]model.Task, error) {
	f.lastLimit = limit
	f.lastOffset = offset
	var tasks []model.Task
	for _, task := range f.tasks {
		if task.UserID != userID {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		if priority != "" && task.Priority != priority {
			continue
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	task.ID = uuid.New()
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	f.tasks[task.ID] = &task
	copied := task
	return &copied, nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	existing, ok := f.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return nil, pgx.ErrNoRows
	}
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = time.Now()
	f.tasks[task.ID] = &task
	copied := task
	return &copied, nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTaskStore) SetTaskCompletion(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*model.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	if completed {
		task.Status = model.TaskStatusCompleted
		now := time.Now()
		task.CompletedAt = &now
	} else {
		task.Status = model.TaskStatusPending
		task.CompletedAt = nil
	}
	copied := *task
	return &copied, nil
}

func TestTaskCreateStampsOwnerAndDefaults(t *testing.T) {
	store := newFakeTaskStore()
	svc := NewTaskService(store)
	owner := uuid.New()

	task, err := svc.Create(context.Background(), owner, model.TaskCreateRequest{Title: "buy milk"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if task.UserID != owner {
		t.Fatalf("owner not stamped: got %s, want %s", task.UserID, owner)
	}
	if task.Status != model.TaskStatusPending || task.Priority != "medium" {
		t.Fatalf("defaults not applied: %+v", task)
	}
}

func TestTaskCreateRejectsEmptyTitle(t *testing.T) {
	svc := NewTaskService(newFakeTaskStore())
	if _, err := svc.Create(context.Background(), uuid.New(), model.TaskCreateRequest{Title: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTaskGetForeignOwnerIsNotFound(t *testing.T) {
	store := newFakeTaskStore()
	svc := NewTaskService(store)
	owner := uuid.New()
	other := uuid.New()

	task, err := svc.Create(context.Background(), owner, model.TaskCreateRequest{Title: "secret"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// The other user sees the same result for a foreign task as for a
	// missing one.
	if _, err := svc.Get(context.Background(), other, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign task, got %v", err)
	}
	if _, err := svc.Get(context.Background(), other, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing task, got %v", err)
	}
}

func TestTaskUpdateAndDeleteForeignOwner(t *testing.T) {
	store := newFakeTaskStore()
	svc := NewTaskService(store)
	owner := uuid.New()
	other := uuid.New()

	task, err := svc.Create(context.Background(), owner, model.TaskCreateRequest{Title: "mine"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	title := "hijacked"
	if _, err := svc.Update(context.Background(), other, task.ID, model.TaskUpdateRequest{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign update, got %v", err)
	}
	if err := svc.Delete(context.Background(), other, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign delete, got %v", err)
	}

	// Still intact for the owner.
	got, err := svc.Get(context.Background(), owner, task.ID)
	if err != nil || got.Title != "mine" {
		t.Fatalf("task was modified by a non-owner: %+v, %v", got, err)
	}
}

func TestTaskToggle(t *testing.T) {
	store := newFakeTaskStore()
	svc := NewTaskService(store)
	owner := uuid.New()

	task, err := svc.Create(context.Background(), owner, model.TaskCreateRequest{Title: "finish report"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	done, err := svc.Toggle(context.Background(), owner, task.ID, true)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if done.Status != model.TaskStatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected completed task, got %+v", done)
	}

	undone, err := svc.Toggle(context.Background(), owner, task.ID, false)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if undone.Status != model.TaskStatusPending || undone.CompletedAt != nil {
		t.Fatalf("expected pending task, got %+v", undone)
	}
}

func TestListFilteredClampsLimit(t *testing.T) {
	store := newFakeTaskStore()
	svc := NewTaskService(store)

	if _, err := svc.ListFiltered(context.Background(), uuid.New(), "", "", 0, -5); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if store.lastLimit != 50 || store.lastOffset != 0 {
		t.Fatalf("expected clamped limit/offset, got %d/%d", store.lastLimit, store.lastOffset)
	}
}

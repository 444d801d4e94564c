package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/taskloop/backend/internal/model"
)

const taskColumns = `id, user_id, title, description, status, priority, due_date, created_at, updated_at, completed_at`

// Every statement here carries user_id in its WHERE clause (or stamps it on
// insert). A task owned by someone else scans the same as a missing task.

func (db *Postgres) ListTasks(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (db *Postgres) ListTasksFiltered(ctx context.Context, userID uuid.UUID, status, priority string, limit, offset int) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR priority = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := db.Pool.Query(ctx, query, userID, status, priority, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (db *Postgres) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	return db.scanTask(db.Pool.QueryRow(ctx, query, taskID, userID))
}

func (db *Postgres) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	query := `
		INSERT INTO tasks (id, user_id, title, description, status, priority, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + taskColumns
	return db.scanTask(db.Pool.QueryRow(ctx, query,
		uuid.New(), task.UserID, task.Title, task.Description, task.Status, task.Priority, task.DueDate))
}

func (db *Postgres) UpdateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, priority = $6, due_date = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns
	return db.scanTask(db.Pool.QueryRow(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.Status, task.Priority, task.DueDate))
}

func (db *Postgres) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) SetTaskCompletion(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*model.Task, error) {
	query := `
		UPDATE tasks
		SET status = CASE WHEN $3 THEN 'completed' ELSE 'pending' END,
		    completed_at = CASE WHEN $3 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns
	return db.scanTask(db.Pool.QueryRow(ctx, query, taskID, userID, completed))
}

func (db *Postgres) scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.DueDate,
			&task.CreatedAt,
			&task.UpdatedAt,
			&task.CompletedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

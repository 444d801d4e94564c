package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/taskloop/backend/internal/model"
)

const conversationColumns = `id, user_id, title, created_at, updated_at`

func (db *Postgres) CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*model.Conversation, error) {
	query := `
		INSERT INTO conversations (user_id, title, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + conversationColumns
	return db.scanConversation(db.Pool.QueryRow(ctx, query, userID, title))
}

func (db *Postgres) GetConversation(ctx context.Context, userID uuid.UUID, conversationID int64) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND user_id = $2`
	return db.scanConversation(db.Pool.QueryRow(ctx, query, conversationID, userID))
}

func (db *Postgres) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []model.Conversation
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (db *Postgres) CountConversations(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&total)
	return total, err
}

// UpdateConversation bumps updated_at and optionally retitles. Title is
// skipped when empty so a chat turn can touch the timestamp alone.
func (db *Postgres) UpdateConversation(ctx context.Context, userID uuid.UUID, conversationID int64, title string) error {
	query := `
		UPDATE conversations
		SET title = CASE WHEN $3 = '' THEN title ELSE $3 END, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := db.Pool.Exec(ctx, query, conversationID, userID, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteConversation removes the conversation; messages go with it via the
// foreign key cascade.
func (db *Postgres) DeleteConversation(ctx context.Context, userID uuid.UUID, conversationID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) scanConversation(row rowScanner) (*model.Conversation, error) {
	var conv model.Conversation
	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

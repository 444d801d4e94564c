package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/taskloop/backend/internal/model"
)

func (db *Postgres) InsertMessage(ctx context.Context, msg model.Message) (*model.Message, error) {
	var metadata []byte
	if msg.Metadata != nil {
		encoded, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = encoded
	}

	query := `
		INSERT INTO messages (user_id, conversation_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, conversation_id, role, content, metadata, created_at
	`
	return db.scanMessage(db.Pool.QueryRow(ctx, query,
		msg.UserID, msg.ConversationID, msg.Role, msg.Content, metadata))
}

func (db *Postgres) ListMessages(ctx context.Context, userID uuid.UUID, conversationID int64) ([]model.Message, error) {
	query := `
		SELECT id, user_id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.Pool.Query(ctx, query, conversationID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := db.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (db *Postgres) DeleteMessage(ctx context.Context, userID uuid.UUID, messageID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM messages WHERE id = $1 AND user_id = $2`, messageID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) scanMessage(row rowScanner) (*model.Message, error) {
	var msg model.Message
	var metadata []byte
	err := row.Scan(
		&msg.ID,
		&msg.UserID,
		&msg.ConversationID,
		&msg.Role,
		&msg.Content,
		&metadata,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
			return nil, err
		}
	}
	return &msg, nil
}

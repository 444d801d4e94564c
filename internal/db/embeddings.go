package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/taskloop/backend/internal/model"
)

func (db *Postgres) InsertMessageEmbedding(ctx context.Context, userID uuid.UUID, messageID int64, content, embModel string, vector []float32) (int64, error) {
	query := `
		INSERT INTO message_embeddings (user_id, message_id, content, model, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := db.Pool.QueryRow(ctx, query, userID, messageID, content, embModel, pgvector.NewVector(vector)).Scan(&id)
	return id, err
}

// SearchMessageEmbeddings ranks the caller's own messages by cosine
// distance. The user_id predicate is the ownership boundary; other users'
// messages never enter the candidate set.
func (db *Postgres) SearchMessageEmbeddings(ctx context.Context, userID uuid.UUID, vector []float32, limit int) ([]model.MessageSearchResult, error) {
	query := `
		SELECT message_id, content, embedding <=> $2 AS distance
		FROM message_embeddings
		WHERE user_id = $1
		ORDER BY distance ASC
		LIMIT $3
	`
	rows, err := db.Pool.Query(ctx, query, userID, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.MessageSearchResult
	for rows.Next() {
		var res model.MessageSearchResult
		if err := rows.Scan(&res.MessageID, &res.Content, &res.Distance); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

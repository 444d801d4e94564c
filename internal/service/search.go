package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/model"
)

type EmbeddingStore interface {
	InsertMessageEmbedding(ctx context.Context, userID uuid.UUID, messageID int64, content, embModel string, vector []float32) (int64, error)
	SearchMessageEmbeddings(ctx context.Context, userID uuid.UUID, vector []float32, limit int) ([]model.MessageSearchResult, error)
}

type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// SearchService indexes and searches a user's own messages. Results are
// owner-scoped at the query level, same as every other resource store.
type SearchService struct {
	store  EmbeddingStore
	client EmbeddingClient
}

func NewSearchService(store EmbeddingStore, client EmbeddingClient) *SearchService {
	return &SearchService{store: store, client: client}
}

func (s *SearchService) IndexMessage(ctx context.Context, userID uuid.UUID, messageID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	vector, embModel, err := s.client.EmbedText(ctx, content)
	if err != nil {
		return err
	}
	_, err = s.store.InsertMessageEmbedding(ctx, userID, messageID, content, embModel, vector)
	return err
}

func (s *SearchService) Search(ctx context.Context, userID uuid.UUID, query string, limit int) (*model.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	vector, _, err := s.client.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.store.SearchMessageEmbeddings(ctx, userID, vector, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.MessageSearchResult{}
	}
	return &model.SearchResponse{Success: true, Query: query, Results: results}, nil
}

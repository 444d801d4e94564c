package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/db"
	"github.com/taskloop/backend/internal/model"
)

const defaultConversationTitle = "New Conversation"

// ErrAgentUnavailable reports that no assistant model is configured.
// Conversation storage keeps working without one.
var ErrAgentUnavailable = errors.New("assistant unavailable")

type ChatStore interface {
	CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, userID uuid.UUID, conversationID int64) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Conversation, error)
	CountConversations(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateConversation(ctx context.Context, userID uuid.UUID, conversationID int64, title string) error
	DeleteConversation(ctx context.Context, userID uuid.UUID, conversationID int64) error
	InsertMessage(ctx context.Context, msg model.Message) (*model.Message, error)
	ListMessages(ctx context.Context, userID uuid.UUID, conversationID int64) ([]model.Message, error)
	DeleteMessage(ctx context.Context, userID uuid.UUID, messageID int64) error
}

type AgentRunner interface {
	Run(ctx context.Context, subject uuid.UUID, history []model.Message, userMessage string) (string, []model.ToolCall, error)
}

type MessageIndexer interface {
	IndexMessage(ctx context.Context, userID uuid.UUID, messageID int64, content string) error
}

type ChatService struct {
	store   ChatStore
	agent   AgentRunner    // nil when no assistant model is configured
	indexer MessageIndexer // optional
}

func NewChatService(store ChatStore, agent AgentRunner, indexer MessageIndexer) *ChatService {
	return &ChatService{store: store, agent: agent, indexer: indexer}
}

// Chat runs one assistant turn. The user message is persisted before the
// agent runs and retracted if the agent fails, so the stored history never
// contains a user turn without its resolution.
func (s *ChatService) Chat(ctx context.Context, subject uuid.UUID, req model.ChatRequest) (*model.ChatResponse, error) {
	if s.agent == nil {
		return nil, ErrAgentUnavailable
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.resolveConversation(ctx, subject, req.ConversationID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, subject, conversation.ID)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.store.InsertMessage(ctx, model.Message{
		UserID:         subject,
		ConversationID: conversation.ID,
		Role:           "user",
		Content:        message,
	})
	if err != nil {
		return nil, err
	}

	answer, toolCalls, err := s.agent.Run(ctx, subject, history, message)
	if err != nil {
		if delErr := s.store.DeleteMessage(ctx, subject, userMessage.ID); delErr != nil {
			log.Printf("failed to retract user message %d after agent failure: %v", userMessage.ID, delErr)
		}
		return nil, fmt.Errorf("failed to process message: %w", err)
	}

	assistantMessage := model.Message{
		UserID:         subject,
		ConversationID: conversation.ID,
		Role:           "assistant",
		Content:        answer,
	}
	if len(toolCalls) > 0 {
		assistantMessage.Metadata = map[string]any{"tool_calls": toolCalls}
	}
	stored, err := s.store.InsertMessage(ctx, assistantMessage)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateConversation(ctx, subject, conversation.ID, autoTitle(conversation.Title, message)); err != nil {
		log.Printf("failed to touch conversation %d: %v", conversation.ID, err)
	}

	s.index(ctx, subject, userMessage.ID, message)
	s.index(ctx, subject, stored.ID, answer)

	if toolCalls == nil {
		toolCalls = []model.ToolCall{}
	}
	return &model.ChatResponse{
		Success:        true,
		ConversationID: conversation.ID,
		Response:       answer,
		ToolCalls:      toolCalls,
		MessageID:      stored.ID,
		CreatedAt:      stored.CreatedAt,
	}, nil
}

func (s *ChatService) ListConversations(ctx context.Context, subject uuid.UUID, limit, offset int) (*model.ConversationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	conversations, err := s.store.ListConversations(ctx, subject, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountConversations(ctx, subject)
	if err != nil {
		return nil, err
	}

	if conversations == nil {
		conversations = []model.Conversation{}
	}
	return &model.ConversationListResponse{
		Success:       true,
		Conversations: conversations,
		Total:         total,
	}, nil
}

func (s *ChatService) GetConversation(ctx context.Context, subject uuid.UUID, conversationID int64) (*model.ConversationHistoryResponse, error) {
	conversation, err := s.store.GetConversation(ctx, subject, conversationID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx, subject, conversationID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}

	return &model.ConversationHistoryResponse{
		Success:      true,
		Conversation: *conversation,
		Messages:     messages,
	}, nil
}

func (s *ChatService) DeleteConversation(ctx context.Context, subject uuid.UUID, conversationID int64) error {
	if err := s.store.DeleteConversation(ctx, subject, conversationID); err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *ChatService) resolveConversation(ctx context.Context, subject uuid.UUID, conversationID *int64) (*model.Conversation, error) {
	if conversationID == nil {
		return s.store.CreateConversation(ctx, subject, defaultConversationTitle)
	}

	conversation, err := s.store.GetConversation(ctx, subject, *conversationID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return conversation, nil
}

// index is best-effort: search staleness never fails a chat turn.
func (s *ChatService) index(ctx context.Context, subject uuid.UUID, messageID int64, content string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexMessage(ctx, subject, messageID, content); err != nil {
		log.Printf("failed to index message %d: %v", messageID, err)
	}
}

func autoTitle(currentTitle, firstMessage string) string {
	if currentTitle != defaultConversationTitle {
		return ""
	}
	runes := []rune(firstMessage)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return firstMessage
}

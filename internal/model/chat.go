package model

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             int64          `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	ConversationID int64          `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID *int64 `json:"conversation_id"`
}

// ToolCall records one tool invocation the assistant made during a turn.
type ToolCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Result    map[string]any `json:"result,omitempty"`
}

type ChatResponse struct {
	Success        bool       `json:"success"`
	ConversationID int64      `json:"conversation_id"`
	Response       string     `json:"response"`
	ToolCalls      []ToolCall `json:"tool_calls"`
	MessageID      int64      `json:"message_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ConversationListResponse struct {
	Success       bool           `json:"success"`
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}

type ConversationHistoryResponse struct {
	Success      bool         `json:"success"`
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

type MessageSearchResult struct {
	MessageID int64   `json:"message_id"`
	Content   string  `json:"content"`
	Distance  float64 `json:"distance"`
}

type SearchResponse struct {
	Success bool                  `json:"success"`
	Query   string                `json:"query"`
	Results []MessageSearchResult `json:"results"`
}

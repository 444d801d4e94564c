package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskloop/backend/internal/model"
	"github.com/taskloop/backend/internal/service"
)

// ChatHandler serves the assistant and conversation routes. All of them sit
// behind AuthMiddleware and RequireSelf("user_id"), so the identity used
// below is always the verified token subject, never the path value.
type ChatHandler struct {
	chat   *service.ChatService
	search *service.SearchService // nil when search is disabled
}

func NewChatHandler(chat *service.ChatService, search *service.SearchService) *ChatHandler {
	return &ChatHandler{chat: chat, search: search}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	user := CurrentUser(c)
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	resp, err := h.chat.Chat(c.Request.Context(), user.ID, req)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	user := CurrentUser(c)
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	resp, err := h.chat.ListConversations(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	user := CurrentUser(c)
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	resp, err := h.chat.GetConversation(c.Request.Context(), user.ID, conversationID)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	user := CurrentUser(c)
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	if err := h.chat.DeleteConversation(c.Request.Context(), user.ID, conversationID); err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ApiResponse{Success: true, Message: "Conversation deleted"})
}

func (h *ChatHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "search is not enabled"})
		return
	}

	user := CurrentUser(c)
	resp, err := h.search.Search(c.Request.Context(), user.ID, c.Query("q"), queryInt(c, "limit", 10))
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "query parameter q is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseConversationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Conversation not found"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAgentUnavailable):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "assistant is not enabled"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Conversation not found"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input"})
	default:
		// Agent details stay in the server log; the caller gets a
		// non-technical message.
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to process message"})
	}
}

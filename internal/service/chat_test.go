package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/taskloop/backend/internal/model"
)

type fakeChatStore struct {
	conversations map[int64]*model.Conversation
	messages      map[int64]*model.Message
	nextConvID    int64
	nextMsgID     int64
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		conversations: map[int64]*model.Conversation{},
		messages:      map[int64]*model.Message{},
	}
}

func (f *fakeChatStore) CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*model.Conversation, error) {
	f.nextConvID++
	conv := &model.Conversation{
		ID:        f.nextConvID,
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.conversations[conv.ID] = conv
	copied := *conv
	return &copied, nil
}

func (f *fakeChatStore) GetConversation(ctx context.Context, userID uuid.UUID, conversationID int64) (*model.Conversation, error) {
	conv, ok := f.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeChatStore) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Conversation, error) {
	var conversations []model.Conversation
	for _, conv := range f.conversations {
		if conv.UserID == userID {
			conversations = append(conversations, *conv)
		}
	}
	return conversations, nil
}

func (f *fakeChatStore) CountConversations(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, conv := range f.conversations {
		if conv.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeChatStore) UpdateConversation(ctx context.Context, userID uuid.UUID, conversationID int64, title string) error {
	conv, ok := f.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return pgx.ErrNoRows
	}
	if title != "" {
		conv.Title = title
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (f *fakeChatStore) DeleteConversation(ctx context.Context, userID uuid.UUID, conversationID int64) error {
	conv, ok := f.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(f.conversations, conversationID)
	for id, msg := range f.messages {
		if msg.ConversationID == conversationID {
			delete(f.messages, id)
		}
	}
	return nil
}

func (f *fakeChatStore) InsertMessage(ctx context.Context, msg model.Message) (*model.Message, error) {
	f.nextMsgID++
	msg.ID = f.nextMsgID
	msg.CreatedAt = time.Now()
	stored := msg
	f.messages[msg.ID] = &stored
	copied := msg
	return &copied, nil
}

func (f *fakeChatStore) ListMessages(ctx context.Context, userID uuid.UUID, conversationID int64) ([]model.Message, error) {
	var messages []model.Message
	for id := int64(1); id <= f.nextMsgID; id++ {
		msg, ok := f.messages[id]
		if ok && msg.ConversationID == conversationID && msg.UserID == userID {
			messages = append(messages, *msg)
		}
	}
	return messages, nil
}

func (f *fakeChatStore) DeleteMessage(ctx context.Context, userID uuid.UUID, messageID int64) error {
	msg, ok := f.messages[messageID]
	if !ok || msg.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(f.messages, messageID)
	return nil
}

type fakeAgent struct {
	answer string
	calls  []model.ToolCall
	err    error

	seenSubject uuid.UUID
	seenHistory int
}

func (f *fakeAgent) Run(ctx context.Context, subject uuid.UUID, history []model.Message, userMessage string) (string, []model.ToolCall, error) {
	f.seenSubject = subject
	f.seenHistory = len(history)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.answer, f.calls, nil
}

type fakeIndexer struct {
	indexed []int64
}

func (f *fakeIndexer) IndexMessage(ctx context.Context, userID uuid.UUID, messageID int64, content string) error {
	f.indexed = append(f.indexed, messageID)
	return nil
}

func TestChatStoresFullTurn(t *testing.T) {
	store := newFakeChatStore()
	agent := &fakeAgent{answer: "Done!", calls: []model.ToolCall{{ToolName: "add_task"}}}
	indexer := &fakeIndexer{}
	svc := NewChatService(store, agent, indexer)
	subject := uuid.New()

	resp, err := svc.Chat(context.Background(), subject, model.ChatRequest{Message: "add buy milk"})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !resp.Success || resp.Response != "Done!" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if agent.seenSubject != subject {
		t.Fatalf("agent received subject %s, want %s", agent.seenSubject, subject)
	}

	messages, _ := store.ListMessages(context.Background(), subject, resp.ConversationID)
	if len(messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Fatalf("unexpected roles: %s, %s", messages[0].Role, messages[1].Role)
	}
	if messages[1].Metadata == nil {
		t.Fatal("assistant message missing tool call metadata")
	}
	if len(indexer.indexed) != 2 {
		t.Fatalf("expected both messages indexed, got %d", len(indexer.indexed))
	}
	if store.conversations[resp.ConversationID].Title != "add buy milk" {
		t.Fatalf("conversation not auto-titled: %q", store.conversations[resp.ConversationID].Title)
	}
}

func TestChatRetractsUserMessageOnAgentFailure(t *testing.T) {
	store := newFakeChatStore()
	agent := &fakeAgent{err: errors.New("model unavailable")}
	svc := NewChatService(store, agent, nil)
	subject := uuid.New()

	_, err := svc.Chat(context.Background(), subject, model.ChatRequest{Message: "hello"})
	if err == nil {
		t.Fatal("expected error from failing agent")
	}

	// No orphaned user turn remains.
	if len(store.messages) != 0 {
		t.Fatalf("expected retracted user message, %d messages remain", len(store.messages))
	}
}

func TestChatUnknownConversationIsNotFound(t *testing.T) {
	svc := NewChatService(newFakeChatStore(), &fakeAgent{answer: "hi"}, nil)
	missing := int64(42)

	_, err := svc.Chat(context.Background(), uuid.New(), model.ChatRequest{Message: "hello", ConversationID: &missing})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChatForeignConversationIsNotFound(t *testing.T) {
	store := newFakeChatStore()
	svc := NewChatService(store, &fakeAgent{answer: "hi"}, nil)
	owner := uuid.New()
	other := uuid.New()

	conv, err := store.CreateConversation(context.Background(), owner, defaultConversationTitle)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err = svc.Chat(context.Background(), other, model.ChatRequest{Message: "hello", ConversationID: &conv.ID})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign conversation, got %v", err)
	}
	if _, err := svc.GetConversation(context.Background(), other, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on fetch, got %v", err)
	}
	if err := svc.DeleteConversation(context.Background(), other, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestChatWithoutAgentIsUnavailable(t *testing.T) {
	store := newFakeChatStore()
	svc := NewChatService(store, nil, nil)
	subject := uuid.New()

	_, err := svc.Chat(context.Background(), subject, model.ChatRequest{Message: "hello"})
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
	if len(store.conversations) != 0 || len(store.messages) != 0 {
		t.Fatalf("nothing should be persisted without an agent, got %d conversations and %d messages",
			len(store.conversations), len(store.messages))
	}
}

func TestConversationStorageWorksWithoutAgent(t *testing.T) {
	store := newFakeChatStore()
	svc := NewChatService(store, nil, nil)
	subject := uuid.New()

	conv, err := store.CreateConversation(context.Background(), subject, defaultConversationTitle)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	list, err := svc.ListConversations(context.Background(), subject, 50, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("expected one conversation, got %d", list.Total)
	}

	history, err := svc.GetConversation(context.Background(), subject, conv.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if history.Conversation.ID != conv.ID {
		t.Fatalf("unexpected conversation: %+v", history.Conversation)
	}

	if err := svc.DeleteConversation(context.Background(), subject, conv.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(store.conversations) != 0 {
		t.Fatal("conversation not deleted")
	}
}

func TestAutoTitle(t *testing.T) {
	long := strings.Repeat("x", 80)
	title := autoTitle(defaultConversationTitle, long)
	if title != strings.Repeat("x", 50)+"..." {
		t.Fatalf("unexpected truncated title: %q", title)
	}

	if got := autoTitle(defaultConversationTitle, "short"); got != "short" {
		t.Fatalf("short message should be used verbatim, got %q", got)
	}

	// Already-titled conversations keep their title.
	if got := autoTitle("My errands", "anything"); got != "" {
		t.Fatalf("expected empty title update, got %q", got)
	}
}

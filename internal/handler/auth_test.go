package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskloop/backend/internal/model"
	"github.com/taskloop/backend/internal/service"
)

type memUserStore struct {
	byEmail map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byEmail: map[string]*model.User{}}
}

func (s *memUserStore) CreateUser(ctx context.Context, email, username, passwordHash string) (*model.User, error) {
	if _, exists := s.byEmail[email]; exists {
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.byEmail[email] = user
	copied := *user
	return &copied, nil
}

func (s *memUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	for _, user := range s.byEmail {
		if user.ID == userID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memUserStore) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	for _, user := range s.byEmail {
		if user.ID == userID {
			now := time.Now()
			user.LastLoginAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func authRouter(store *memUserStore, codec *service.TokenCodec) *gin.Engine {
	h := NewAuthHandler(service.NewAuthService(store, codec))
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	gated := r.Group("/", AuthMiddleware(codec))
	gated.GET("/users/me", h.Me)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	codec := testCodec()
	r := authRouter(newMemUserStore(), codec)

	w := postJSON(t, r, "/auth/register", model.RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse",
		Username: "alice",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp model.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	identity, err := codec.Decode(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if identity.ID.String() != resp.User.ID {
		t.Fatalf("token subject %s does not match user id %s", identity.ID, resp.User.ID)
	}

	// The issued token works against a gated route straight away.
	me := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	r.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("expected 200 from /users/me, got %d: %s", me.Code, me.Body.String())
	}
}

func TestRegisterDuplicateEmailIsBadRequest(t *testing.T) {
	r := authRouter(newMemUserStore(), testCodec())

	req := model.RegisterRequest{Email: "alice@example.com", Password: "correct horse", Username: "alice"}
	if w := postJSON(t, r, "/auth/register", req, ""); w.Code != http.StatusOK {
		t.Fatalf("first registration failed: %d", w.Code)
	}

	w := postJSON(t, r, "/auth/register", req, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate, got %d", w.Code)
	}
}

func TestRegisterMissingFieldsIsBadRequest(t *testing.T) {
	r := authRouter(newMemUserStore(), testCodec())

	w := postJSON(t, r, "/auth/register", map[string]string{"email": "alice@example.com"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLoginFailuresAreUnauthorized(t *testing.T) {
	store := newMemUserStore()
	r := authRouter(store, testCodec())
	register := model.RegisterRequest{Email: "alice@example.com", Password: "correct horse", Username: "alice"}
	if w := postJSON(t, r, "/auth/register", register, ""); w.Code != http.StatusOK {
		t.Fatalf("registration failed: %d", w.Code)
	}

	wrongPassword := postJSON(t, r, "/auth/login", model.LoginRequest{Email: "alice@example.com", Password: "wrong"}, "")
	unknownEmail := postJSON(t, r, "/auth/login", model.LoginRequest{Email: "nobody@example.com", Password: "correct horse"}, "")

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both failures, got %d and %d", wrongPassword.Code, unknownEmail.Code)
	}
	// Both failures present the same body: nothing reveals whether the
	// email is registered.
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("failure responses differ: %q vs %q", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	codec := testCodec()
	r := authRouter(newMemUserStore(), codec)
	register := model.RegisterRequest{Email: "alice@example.com", Password: "correct horse", Username: "alice"}
	if w := postJSON(t, r, "/auth/register", register, ""); w.Code != http.StatusOK {
		t.Fatalf("registration failed: %d", w.Code)
	}

	w := postJSON(t, r, "/auth/login", model.LoginRequest{Email: "alice@example.com", Password: "correct horse"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp model.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, err := codec.Decode(resp.Token); err != nil {
		t.Fatalf("login token does not verify: %v", err)
	}
}

func TestMeRequiresToken(t *testing.T) {
	r := authRouter(newMemUserStore(), testCodec())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

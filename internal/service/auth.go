package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskloop/backend/internal/db"
	"github.com/taskloop/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// Callers must not be able to tell which one happened.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrConflict           = errors.New("email or username already registered")
	ErrNotFound           = errors.New("not found")
)

type UserStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID uuid.UUID) error
}

// AuthService is the only writer of password hashes and last-login
// timestamps.
type AuthService struct {
	store UserStore
	codec *TokenCodec
}

func NewAuthService(store UserStore, codec *TokenCodec) *AuthService {
	return &AuthService{store: store, codec: codec}
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || len(password) < minPasswordLength {
		return nil, "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	// Uniqueness of email and username is enforced by the database; either
	// collision surfaces as the same conflict.
	user, err := s.store.CreateUser(ctx, email, username, string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrConflict
		}
		return nil, "", err
	}

	token, err := s.codec.Encode(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		// The login itself succeeded; a stale last_login_at is not worth
		// failing the request over.
		log.Printf("failed to update last_login_at for user %s: %v", user.ID, err)
	}

	token, err := s.codec.Encode(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

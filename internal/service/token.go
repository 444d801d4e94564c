package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/model"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedSubject = errors.New("token subject missing or malformed")
)

type identityClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 identity tokens. It is stateless: the
// secret is fixed at construction and the expiry claim is the only
// server-side invalidation mechanism.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// Encode issues a token whose subject is the user's identifier, expiring at
// now + the configured validity window.
func (c *TokenCodec) Encode(user *model.User) (string, error) {
	now := time.Now()
	claims := identityClaims{
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies the signature and expiry and extracts the subject. All
// failure modes are terminal for the caller; the distinct errors exist for
// logging and tests, not for divergent handling.
func (c *TokenCodec) Decode(tokenStr string) (*model.AuthUser, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, ErrMalformedSubject
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrMalformedSubject
	}

	return &model.AuthUser{
		ID:       userID,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}

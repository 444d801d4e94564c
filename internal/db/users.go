package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/model"
)

const userColumns = `id, email, username, password_hash, email_verified, is_active, created_at, updated_at, last_login_at`

func (db *Postgres) CreateUser(ctx context.Context, email, username, passwordHash string) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + userColumns
	return db.scanUser(db.Pool.QueryRow(ctx, query, uuid.New(), email, username, passwordHash))
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return db.scanUser(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return db.scanUser(db.Pool.QueryRow(ctx, query, userID))
}

// TouchLastLogin is last-writer-wins: concurrent logins for one user may
// race, and nothing depends on the timestamp being monotonic.
func (db *Postgres) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *Postgres) scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

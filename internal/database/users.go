package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, full_name, password_hash, role, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

type CreateUserParams struct {
	Username     string
	FullName     string
	PasswordHash string
	Role         string
}

const createUser = `
INSERT INTO users (username, full_name, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Username, arg.FullName, arg.PasswordHash, arg.Role)
	return scanUser(row)
}

// BumpLoginAttempts atomically increments the failed-login counter for a
// username, resetting it when the window has expired, and returns the count
// now in effect. One statement so concurrent logins cannot double-count.
const bumpLoginAttempts = `
INSERT INTO login_attempts (username, count, expires_at)
VALUES ($1, 1, now() + make_interval(mins => $2))
ON CONFLICT (username) DO UPDATE
SET count = CASE
        WHEN login_attempts.expires_at < now() THEN 1
        ELSE login_attempts.count + 1
    END,
    expires_at = CASE
        WHEN login_attempts.expires_at < now() THEN now() + make_interval(mins => $2)
        ELSE login_attempts.expires_at
    END
RETURNING count`

func (q *Queries) BumpLoginAttempts(ctx context.Context, username string, windowMinutes int32) (int32, error) {
	var count int32
	err := q.db.QueryRow(ctx, bumpLoginAttempts, username, windowMinutes).Scan(&count)
	return count, err
}

const clearLoginAttempts = `DELETE FROM login_attempts WHERE username = $1`

func (q *Queries) ClearLoginAttempts(ctx context.Context, username string) error {
	_, err := q.db.Exec(ctx, clearLoginAttempts, username)
	return err
}

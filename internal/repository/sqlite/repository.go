// Package sqlite persists users and rooms. Live playback state is never
// stored here; it lives in core and dies with the room.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dkeye/WatchParty/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                   TEXT PRIMARY KEY,
	username             TEXT NOT NULL UNIQUE,
	email                TEXT NOT NULL UNIQUE,
	password_hash        TEXT NOT NULL,
	verified             INTEGER NOT NULL DEFAULT 0,
	verify_token         TEXT NOT NULL DEFAULT '',
	verify_token_expires INTEGER NOT NULL DEFAULT 0,
	created_room_id      TEXT NOT NULL DEFAULT '',
	current_room_id      TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	host_id    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS room_members (
	room_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (room_id, user_id)
);
`

// Open opens (or creates) the database and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, verified, verify_token, verify_token_expires, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.Verified, u.VerifyToken, u.VerifyTokenExpires); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

const userColumns = `id, username, email, password_hash, verified, verify_token, verify_token_expires, created_room_id, current_room_id`

func (r *Repository) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Verified,
		&u.VerifyToken, &u.VerifyTokenExpires, &u.CreatedRoomID, &u.CurrentRoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
}

func (r *Repository) UpdateUsername(ctx context.Context, id domain.UserID, username string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, id); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("update username for %s: %w", id, err)
	}
	return nil
}

func (r *Repository) SetVerifyToken(ctx context.Context, id domain.UserID, token string, expires int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET verify_token = ?, verify_token_expires = ? WHERE id = ?`, token, expires, id); err != nil {
		return fmt.Errorf("set verify token for %s: %w", id, err)
	}
	return nil
}

// VerifyEmail consumes a verification token. now is unix seconds.
func (r *Repository) VerifyEmail(ctx context.Context, token string, now int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET verified = 1, verify_token = '', verify_token_expires = 0
		 WHERE verify_token = ? AND verify_token <> '' AND verify_token_expires > ?`, token, now)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetCurrentRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET current_room_id = ? WHERE id = ?`, roomID, id); err != nil {
		return fmt.Errorf("set current room for %s: %w", id, err)
	}
	return nil
}

func (r *Repository) ClearCurrentRoom(ctx context.Context, id domain.UserID) error {
	return r.SetCurrentRoom(ctx, id, "")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

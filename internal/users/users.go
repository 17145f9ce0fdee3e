// internal/users/users.go
//
// Admin accounts.
//
// Context
// -------
// The `users` table holds the accounts that may sign in to the admin
// panel.  Passwords are stored as bcrypt hashes only.  On first boot the
// table is empty and EnsureAdmin seeds it from the configured admin
// credentials so the site is never left without a way in.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/acmlab/labsite/internal/database"
)

// Cost is the bcrypt work factor.  Tests lower it to bcrypt.MinCost.
var Cost = 12

// MinPasswordLen applies to password changes.
const MinPasswordLen = 8

var (
	// ErrNotFound means no account has the username.
	ErrNotFound = errors.New("user not found")
	// ErrBadCredentials covers both an unknown user and a wrong password.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrExists is returned by Create for a taken username.
	ErrExists = errors.New("username already taken")
	// ErrWeakPassword rejects new passwords shorter than MinPasswordLen.
	ErrWeakPassword = errors.New("new password must be at least 8 characters")
)

// Migrations creates the users table.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           {{pk}},
		username     VARCHAR(64)  NOT NULL UNIQUE,
		password     VARCHAR(255) NOT NULL,
		role         VARCHAR(32)  NOT NULL DEFAULT 'admin',
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		avatar       VARCHAR(255) NOT NULL DEFAULT '',
		created_at   DATETIME     NOT NULL,
		updated_at   DATETIME     NOT NULL
	)`,
}

// User mirrors one row in `users`.  PasswordHash never leaves the server.
type User struct {
	ID           int64     `db:"id"           json:"id"`
	Username     string    `db:"username"     json:"username"`
	PasswordHash string    `db:"password"     json:"-"`
	Role         string    `db:"role"         json:"role"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	Avatar       string    `db:"avatar"       json:"avatar"`
	CreatedAt    time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"   json:"updated_at"`
}

// Store reads and writes the users table.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db, now: time.Now} }

const selectCols = `id, username, password, role, display_name, avatar, created_at, updated_at`

// ByUsername fetches one account.
func (s *Store) ByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		s.db.Rebind(`SELECT `+selectCols+` FROM users WHERE username = ? LIMIT 1`),
		strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate returns the account when password matches its hash.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.ByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// Create hashes password and inserts a new account.
func (s *Store) Create(ctx context.Context, username, password, role, displayName string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if role == "" {
		role = "admin"
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (username, password, role, display_name, avatar, created_at, updated_at)
		VALUES (:username, :password, :role, :display_name, :avatar, :created_at, :updated_at)`, u)
	if database.IsUniqueViolation(err) {
		return nil, ErrExists
	}
	if err != nil {
		return nil, err
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies oldPassword before storing a hash of newPassword.
func (s *Store) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}
	u, err := s.Authenticate(ctx, username, oldPassword)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), Cost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`),
		string(hash), s.now().UTC(), u.ID)
	return err
}

// UpdateProfile renames the account and sets its display name.  An empty
// newUsername or displayName leaves that field unchanged.  A taken
// username yields ErrExists.
func (s *Store) UpdateProfile(ctx context.Context, username, newUsername, displayName string) (*User, error) {
	u, err := s.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if n := strings.TrimSpace(newUsername); n != "" && n != u.Username {
		if _, err := s.ByUsername(ctx, n); err == nil {
			return nil, ErrExists
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u.Username = n
	}
	if d := strings.TrimSpace(displayName); d != "" {
		u.DisplayName = d
	}
	u.UpdatedAt = s.now().UTC()

	_, err = s.db.NamedExecContext(ctx, `
		UPDATE users SET username = :username, display_name = :display_name, updated_at = :updated_at
		WHERE id = :id`, u)
	if database.IsUniqueViolation(err) {
		return nil, ErrExists
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetAvatar stores the avatar URL and returns the previous one.
func (s *Store) SetAvatar(ctx context.Context, username, url string) (prev string, err error) {
	u, err := s.ByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?`),
		url, s.now().UTC(), u.ID)
	if err != nil {
		return "", err
	}
	return u.Avatar, nil
}

// Count returns the number of accounts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

// EnsureAdmin seeds one admin account when the table is empty.  It is a
// no-op otherwise, so a changed password in config never overwrites the
// stored one.
func (s *Store) EnsureAdmin(ctx context.Context, username, password, displayName string) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if username == "" || password == "" {
		zap.S().Warnw("users table empty and no admin credentials configured")
		return nil
	}
	if _, err := s.Create(ctx, username, password, "admin", displayName); err != nil {
		return err
	}
	zap.S().Infow("seeded admin account", "username", username)
	return nil
}

package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is the single operator account.
type User struct {
	ID           int64     `json:"id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is a logged-in operator. Token is only populated by
// CreateSession; the database keeps its SHA-256.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	// DefaultSessionDuration is used when SESSION_DURATION is not configured.
	DefaultSessionDuration = 12 * time.Hour
	// MinSessionDuration is the shortest session SetSessionDuration accepts.
	MinSessionDuration = time.Minute

	tokenBytes = 32
)

var (
	// ErrInvalidPassword is returned for a wrong password or when no user exists.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidSession is returned for unknown, malformed or expired tokens.
	ErrInvalidSession = errors.New("invalid session")
	// ErrNoUser is returned by UpdatePassword before setup.
	ErrNoUser = errors.New("no user configured")

	sessionDuration atomic.Int64
)

func init() {
	sessionDuration.Store(int64(DefaultSessionDuration))
}

// SetSessionDuration sets how long new and extended sessions stay valid.
// Values below MinSessionDuration are clamped.
func SetSessionDuration(d time.Duration) {
	sessionDuration.Store(int64(max(d, MinSessionDuration)))
}

// GetSessionDuration returns the configured session lifetime.
func GetSessionDuration() time.Duration {
	return time.Duration(sessionDuration.Load())
}

// hashToken maps a hex session token to its stored form.
func hashToken(token string) (string, error) {
	raw, err := hex.DecodeString(token)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidSession
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// HasUsers reports whether setup has been completed.
func (d *Database) HasUsers(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM users)").Scan(&exists)
	return err == nil && exists
}

// CreateUser creates the operator account.
func (d *Database) CreateUser(ctx context.Context, password string) (err error) {
	defer func(start time.Time) { recordQuery("create_user", start, err) }(time.Now())

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, "INSERT INTO users (password_hash) VALUES (?)", hash); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ValidatePassword returns the operator if password matches.
func (d *Database) ValidatePassword(ctx context.Context, password string) (user *User, err error) {
	defer func(start time.Time) { recordQuery("validate_password", start, err) }(time.Now())

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u User
	var created, updated int64
	err = d.db.QueryRowContext(ctx,
		"SELECT id, password_hash, created_at, updated_at FROM users ORDER BY id LIMIT 1",
	).Scan(&u.ID, &u.PasswordHash, &created, &updated)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}

	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}

// CreateSession starts a session for userID and returns it with its token.
func (d *Database) CreateSession(ctx context.Context, userID int64) (session *Session, err error) {
	defer func(start time.Time) { recordQuery("create_session", start, err) }(time.Now())

	raw := make([]byte, tokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	tokenHash, _ := hashToken(token)

	now := time.Now()
	expires := now.Add(GetSessionDuration())

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, expires.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	id, _ := result.LastInsertId()

	return &Session{ID: id, UserID: userID, Token: token, ExpiresAt: expires, CreatedAt: now}, nil
}

// ValidateSession returns the user owning token. Expired sessions are
// rejected here and removed by CleanExpiredSessions.
func (d *Database) ValidateSession(ctx context.Context, token string) (user *User, err error) {
	defer func(start time.Time) { recordQuery("validate_session", start, err) }(time.Now())

	tokenHash, err := hashToken(token)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u User
	var expires, created, updated int64
	err = d.db.QueryRowContext(ctx, `
		SELECT u.id, u.created_at, u.updated_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, tokenHash,
	).Scan(&u.ID, &created, &updated, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}
	if time.Now().Unix() > expires {
		return nil, fmt.Errorf("%w: expired", ErrInvalidSession)
	}

	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}

// ExtendSession restarts the session lifetime from now.
func (d *Database) ExtendSession(ctx context.Context, token string) error {
	tokenHash, err := hashToken(token)
	if err != nil {
		return err
	}
	n, err := d.execSessions(ctx, "UPDATE sessions SET expires_at = ? WHERE token = ?",
		time.Now().Add(GetSessionDuration()).Unix(), tokenHash)
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	if n == 0 {
		return ErrInvalidSession
	}
	return nil
}

// DeleteSession ends the session for token.
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	tokenHash, err := hashToken(token)
	if err != nil {
		return fmt.Errorf("invalid token format: %w", err)
	}
	_, err = d.execSessions(ctx, "DELETE FROM sessions WHERE token = ?", tokenHash)
	return err
}

// DeleteAllSessions logs every client out.
func (d *Database) DeleteAllSessions(ctx context.Context) error {
	_, err := d.execSessions(ctx, "DELETE FROM sessions")
	return err
}

// CleanExpiredSessions removes sessions past their expiry.
func (d *Database) CleanExpiredSessions(ctx context.Context) (err error) {
	defer func(start time.Time) { recordQuery("clean_expired_sessions", start, err) }(time.Now())
	_, err = d.execSessions(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	return err
}

func (d *Database) execSessions(ctx context.Context, query string, args ...any) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdatePassword replaces the operator password and ends every session in
// the same transaction.
func (d *Database) UpdatePassword(ctx context.Context, newPassword string) (err error) {
	defer func(start time.Time) { recordQuery("update_password", start, err) }(time.Now())

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = strftime('%s', 'now')", hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNoUser
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}
	return tx.Commit()
}

package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSetSessionDuration(t *testing.T) {
	original := GetSessionDuration()
	defer SetSessionDuration(original)

	tests := []struct {
		name     string
		input    time.Duration
		expected time.Duration
	}{
		{name: "5 minutes", input: 5 * time.Minute, expected: 5 * time.Minute},
		{name: "24 hours", input: 24 * time.Hour, expected: 24 * time.Hour},
		{name: "minimum", input: time.Minute, expected: time.Minute},
		{name: "too short clamped", input: 30 * time.Second, expected: time.Minute},
		{name: "zero clamped", input: 0, expected: time.Minute},
		{name: "negative clamped", input: -5 * time.Minute, expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetSessionDuration(tt.input)
			if got := GetSessionDuration(); got != tt.expected {
				t.Errorf("SetSessionDuration(%v); GetSessionDuration() = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestUserLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if db.HasUsers(ctx) {
		t.Fatal("HasUsers() = true on empty database")
	}
	if _, err := db.ValidatePassword(ctx, "anything"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("ValidatePassword() without user error = %v, want ErrInvalidPassword", err)
	}

	if err := db.CreateUser(ctx, "platform-9"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if !db.HasUsers(ctx) {
		t.Fatal("HasUsers() = false after CreateUser")
	}

	user, err := db.ValidatePassword(ctx, "platform-9")
	if err != nil {
		t.Fatalf("ValidatePassword() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("ValidatePassword() returned user without ID")
	}

	if _, err := db.ValidatePassword(ctx, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("ValidatePassword(wrong) error = %v, want ErrInvalidPassword", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, "secret"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	user, err := db.ValidatePassword(ctx, "secret")
	if err != nil {
		t.Fatalf("ValidatePassword() error = %v", err)
	}

	session, err := db.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(session.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(session.Token))
	}

	// The raw token is never stored
	var stored string
	if err := db.db.QueryRow("SELECT token FROM sessions WHERE id = ?", session.ID).Scan(&stored); err != nil {
		t.Fatalf("query stored token: %v", err)
	}
	if stored == session.Token {
		t.Error("session token stored in plain text")
	}

	got, err := db.ValidateSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ValidateSession() user = %d, want %d", got.ID, user.ID)
	}

	if err := db.ExtendSession(ctx, session.Token); err != nil {
		t.Errorf("ExtendSession() error = %v", err)
	}

	if err := db.DeleteSession(ctx, session.Token); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := db.ValidateSession(ctx, session.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("ValidateSession() after delete error = %v, want ErrInvalidSession", err)
	}
	if err := db.ExtendSession(ctx, session.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("ExtendSession() after delete error = %v, want ErrInvalidSession", err)
	}
}

func TestValidateSessionMalformedToken(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	for _, token := range []string{"", "not-hex", "zz"} {
		if _, err := db.ValidateSession(ctx, token); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("ValidateSession(%q) error = %v, want ErrInvalidSession", token, err)
		}
	}
}

func TestExpiredSessions(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, "secret"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	user, _ := db.ValidatePassword(ctx, "secret")
	session, err := db.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := db.db.Exec("UPDATE sessions SET expires_at = ?", time.Now().Add(-time.Hour).Unix()); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	if _, err := db.ValidateSession(ctx, session.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("ValidateSession() expired error = %v, want ErrInvalidSession", err)
	}

	if err := db.CleanExpiredSessions(ctx); err != nil {
		t.Fatalf("CleanExpiredSessions() error = %v", err)
	}
	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("sessions after clean = %d, want 0", count)
	}
}

func TestUpdatePasswordInvalidatesSessions(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpdatePassword(ctx, "new"); err == nil {
		t.Error("UpdatePassword() without user expected error")
	}

	if err := db.CreateUser(ctx, "old"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	user, _ := db.ValidatePassword(ctx, "old")
	session, err := db.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := db.UpdatePassword(ctx, "new"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	if _, err := db.ValidatePassword(ctx, "old"); err == nil {
		t.Error("old password still valid")
	}
	if _, err := db.ValidatePassword(ctx, "new"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := db.ValidateSession(ctx, session.Token); err == nil {
		t.Error("session survived password change")
	}
}

func TestDeleteAllSessions(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, "pw"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	user, _ := db.ValidatePassword(ctx, "pw")
	for range 3 {
		if _, err := db.CreateSession(ctx, user.ID); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	if err := db.DeleteAllSessions(ctx); err != nil {
		t.Fatalf("DeleteAllSessions() error = %v", err)
	}
	var count int
	_ = db.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	if count != 0 {
		t.Errorf("sessions = %d, want 0", count)
	}
}

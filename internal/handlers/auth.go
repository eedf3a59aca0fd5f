package handlers

import (
	"net/http"
	"strings"
	"time"

	"isl-announcer/internal/database"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/metrics"
)

// PasswordRequest carries the operator password for setup and login.
type PasswordRequest struct {
	Password string `json:"password"`
}

// PasswordChangeRequest is the body of POST /api/auth/password.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse is returned by the auth endpoints. ExpiresIn is in seconds.
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "isl_announcer_session"

	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

// publicPaths are reachable without a session, as is everything under
// /api/auth/.
var publicPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
	"/version": true,
}

func isPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/api/auth/")
}

// passwordProblem describes why password is unacceptable, or returns "".
func passwordProblem(password string) string {
	switch {
	case len(password) < minPasswordLength:
		return "password must be at least 6 characters"
	case len(password) > maxPasswordLength:
		return "password must not exceed 72 characters"
	}
	return ""
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	setSessionCookie(w, "", time.Unix(0, 0))
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// authenticate validates the session cookie and slides its expiry. On
// failure it writes a 401 and returns false.
func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request) bool {
	token := sessionToken(r)
	if token == "" {
		writeJSONError(w, "Unauthorized", codeUnauthorized, http.StatusUnauthorized)
		return false
	}

	ctx := r.Context()
	if _, err := h.db.ValidateSession(ctx, token); err != nil {
		clearSessionCookie(w)
		writeJSONError(w, "Unauthorized", codeUnauthorized, http.StatusUnauthorized)
		return false
	}

	if err := h.db.ExtendSession(ctx, token); err != nil {
		logging.Debug("Failed to extend session: %v", err)
	} else {
		setSessionCookie(w, token, time.Now().Add(database.GetSessionDuration()))
	}
	return true
}

func sessionResponse() AuthResponse {
	return AuthResponse{Success: true, ExpiresIn: int(database.GetSessionDuration().Seconds())}
}

// AuthMiddleware requires a valid session on every non-public route. It
// does nothing when AUTH_ENABLED is false.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authEnabled || isPublic(r.URL.Path) || h.authenticate(w, r) {
			next.ServeHTTP(w, r)
		}
	})
}

// CheckSetupRequired reports whether the operator password still has to be
// set.
func (h *Handlers) CheckSetupRequired(w http.ResponseWriter, r *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, map[string]bool{
		"needsSetup":  h.authEnabled && !h.db.HasUsers(r.Context()),
		"authEnabled": h.authEnabled,
	})
}

// Setup sets the operator password. It is refused once a password exists.
func (h *Handlers) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.db.HasUsers(ctx) {
		writeJSONError(w, "Setup already completed", codeForbidden, http.StatusForbidden)
		return
	}

	var req PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", codeInvalidRequest, http.StatusBadRequest)
		return
	}
	if problem := passwordProblem(req.Password); problem != "" {
		writeJSONError(w, capitalize(problem), codeInvalidRequest, http.StatusBadRequest)
		return
	}

	if err := h.db.CreateUser(ctx, req.Password); err != nil {
		logging.Error("Failed to create user: %v", err)
		writeJSONError(w, "Failed to create user", codeInternal, http.StatusInternalServerError)
		return
	}

	logging.Info("Operator password configured")
	writeJSONStatusCode(w, http.StatusOK, AuthResponse{Success: true, Message: "Password configured successfully"})
}

// Login exchanges the operator password for a session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", codeInvalidRequest, http.StatusBadRequest)
		return
	}

	user, err := h.db.ValidatePassword(ctx, req.Password)
	if err != nil {
		logging.Warn("Failed login attempt from %s", r.RemoteAddr)
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		writeJSONError(w, "Invalid password", codeUnauthorized, http.StatusUnauthorized)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()

	session, err := h.db.CreateSession(ctx, user.ID)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		writeJSONError(w, "Failed to create session", codeInternal, http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	logging.Info("Operator logged in until %s", session.ExpiresAt.Format(time.RFC3339))
	writeJSONStatusCode(w, http.StatusOK, sessionResponse())
}

// Logout ends the current session. It succeeds without a session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.db.DeleteSession(r.Context(), token); err != nil {
			logging.Warn("Failed to delete session during logout: %v", err)
		}
	}
	clearSessionCookie(w)
	writeJSONStatusCode(w, http.StatusOK, AuthResponse{Success: true, Message: "Logged out successfully"})
}

// CheckAuth reports whether the caller has a valid session.
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	if !h.authEnabled {
		writeJSONStatusCode(w, http.StatusOK, AuthResponse{Success: true})
		return
	}
	if h.authenticate(w, r) {
		writeJSONStatusCode(w, http.StatusOK, sessionResponse())
	}
}

// Keepalive extends the current session.
func (h *Handlers) Keepalive(w http.ResponseWriter, r *http.Request) {
	if h.authenticate(w, r) {
		writeJSONStatusCode(w, http.StatusOK, sessionResponse())
	}
}

// ChangePassword replaces the operator password after checking the current
// one. Every session ends, including the caller's.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PasswordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", codeInvalidRequest, http.StatusBadRequest)
		return
	}

	if _, err := h.db.ValidatePassword(ctx, req.CurrentPassword); err != nil {
		logging.Warn("Password change rejected: wrong current password")
		writeJSONError(w, "Current password is incorrect", codeUnauthorized, http.StatusUnauthorized)
		return
	}
	if problem := passwordProblem(req.NewPassword); problem != "" {
		writeJSONError(w, "New "+problem, codeInvalidRequest, http.StatusBadRequest)
		return
	}

	if err := h.db.UpdatePassword(ctx, req.NewPassword); err != nil {
		logging.Error("Failed to update password: %v", err)
		writeJSONError(w, "Failed to update password", codeInternal, http.StatusInternalServerError)
		return
	}
	clearSessionCookie(w)

	logging.Info("Operator password changed, all sessions ended")
	writeJSONStatusCode(w, http.StatusOK, AuthResponse{Success: true, Message: "Password updated successfully"})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

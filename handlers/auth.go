package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"cinetrail/api"
	"cinetrail/internal/auth"
	"cinetrail/models"
	authsvc "cinetrail/services/auth"
)

type authProvider interface {
	Register(email, password, name string, client authsvc.Client) (authsvc.Result, error)
	Login(email, password string, rememberMe bool, client authsvc.Client) (authsvc.Result, error)
	Logout(token string) error
	CurrentAccount(token string) (models.Account, error)
}

type accountManager interface {
	Get(id string) (models.Account, bool)
	Authenticate(email, password string) (models.Account, error)
	UpdatePassword(id, newPassword string) error
	Rename(id, name string) (models.Account, error)
	Delete(id string) error
}

type sessionManager interface {
	Refresh(token string) (models.Session, error)
	RevokeAllForAccount(accountID, keepToken string) (int, error)
	GetSessionsForAccount(accountID string) []models.Session
}

// favoritesPurger drops the favorites of a deleted account.
type favoritesPurger interface {
	RemoveAll(ctx context.Context, accountID string) (int, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	provider  authProvider
	accounts  accountManager
	sessions  sessionManager
	favorites favoritesPurger
}

// NewAuthHandler wires the auth endpoints. favs may be nil when favorites are
// not stored.
func NewAuthHandler(provider authProvider, accountsSvc accountManager, sessionsSvc sessionManager, favs favoritesPurger) *AuthHandler {
	return &AuthHandler{
		provider:  provider,
		accounts:  accountsSvc,
		sessions:  sessionsSvc,
		favorites: favs,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse is returned by register, login and refresh.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expiresAt"`
	Account   models.Account `json:"account"`
}

func loginResponse(account models.Account, session models.Session) LoginResponse {
	return LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		Account:   account,
	}
}

func clientOf(r *http.Request) authsvc.Client {
	return authsvc.Client{UserAgent: r.Header.Get("User-Agent"), IPAddress: api.ClientIP(r)}
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.provider.Register(req.Email, req.Password, req.Name, clientOf(r))
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, loginResponse(res.Account, res.Session))
}

// Login authenticates a user and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.provider.Login(req.Email, req.Password, req.RememberMe, clientOf(r))
	if err != nil {
		status := statusFor(err, http.StatusInternalServerError)
		if status == http.StatusUnauthorized {
			jsonError(w, "invalid email or password", status)
			return
		}
		log.Printf("[auth] login failed: %v", err)
		jsonError(w, errorMessage(err, status), status)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse(res.Account, res.Session))
}

// Logout invalidates the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := api.ExtractToken(r)
	if token == "" {
		jsonError(w, "no session token", http.StatusBadRequest)
		return
	}
	if err := h.provider.Logout(token); err != nil {
		log.Printf("[auth] logout failed: %v", err)
		jsonError(w, "failed to revoke session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the current authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.provider.CurrentAccount(api.ExtractToken(r))
	if err != nil {
		respondError(w, err, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type RenameRequest struct {
	Name string `json:"name"`
}

// UpdateMe changes the display name of the current account.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	account, err := h.accounts.Rename(auth.GetAccountID(r), req.Name)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Refresh extends the session expiration.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Refresh(api.ExtractToken(r))
	if err != nil {
		jsonError(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}
	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		jsonError(w, "account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse(account, session))
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword changes the current account's password and signs out its
// other sessions.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.GetSession(r)
	if !ok {
		jsonError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, found := h.accounts.Get(session.AccountID)
	if !found {
		jsonError(w, "account not found", http.StatusNotFound)
		return
	}
	if _, err := h.accounts.Authenticate(account.Email, req.CurrentPassword); err != nil {
		jsonError(w, "current password is incorrect", http.StatusUnauthorized)
		return
	}
	if err := h.accounts.UpdatePassword(account.ID, req.NewPassword); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}

	revoked, err := h.sessions.RevokeAllForAccount(account.ID, session.Token)
	if err != nil {
		log.Printf("[auth] failed to revoke other sessions for %s: %v", account.ID, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "password changed", "revokedSessions": revoked})
}

// DeleteMe removes the current account, signs out all of its sessions and
// drops its favorites.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	accountID := auth.GetAccountID(r)
	if err := h.accounts.Delete(accountID); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}

	revoked, err := h.sessions.RevokeAllForAccount(accountID, "")
	if err != nil {
		log.Printf("[auth] failed to revoke sessions of deleted account %s: %v", accountID, err)
	}
	removed := 0
	if h.favorites != nil {
		if removed, err = h.favorites.RemoveAll(r.Context(), accountID); err != nil {
			log.Printf("[auth] failed to remove favorites of deleted account %s: %v", accountID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "account deleted",
		"revokedSessions":  revoked,
		"removedFavorites": removed,
	})
}

// SessionInfo describes an active session without exposing its token.
type SessionInfo struct {
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Persistent bool      `json:"persistent"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	Current    bool      `json:"current"`
}

// Sessions lists the current account's active sessions, newest first.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	current, ok := auth.GetSession(r)
	if !ok {
		jsonError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	active := h.sessions.GetSessionsForAccount(current.AccountID)
	out := make([]SessionInfo, 0, len(active))
	for _, s := range active {
		out = append(out, SessionInfo{
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			Persistent: s.Persistent,
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			Current:    s.Token == current.Token,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

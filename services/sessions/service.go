package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cinetrail/models"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccountRequired    = errors.New("account id is required")
	ErrStorageDirRequired = errors.New("storage directory not provided")
)

const (
	DefaultSessionDuration = 30 * 24 * time.Hour

	// PersistentSessionDuration backs "remember me" logins.
	PersistentSessionDuration = 365 * 24 * time.Hour

	// TokenLength is the number of random bytes in a session token.
	TokenLength = 32
)

// Service manages bearer tokens for authenticated accounts. Expired sessions
// are dropped lazily on access and in bulk by Cleanup, which the scheduler
// runs periodically.
type Service struct {
	mu              sync.RWMutex
	path            string
	sessions        map[string]models.Session
	sessionDuration time.Duration
	now             func() time.Time
}

// NewService creates a sessions service persisting to storageDir/sessions.json.
// An empty storageDir keeps sessions in memory only.
func NewService(storageDir string, sessionDuration time.Duration) (*Service, error) {
	if sessionDuration <= 0 {
		sessionDuration = DefaultSessionDuration
	}

	svc := &Service{
		sessions:        make(map[string]models.Session),
		sessionDuration: sessionDuration,
		now:             func() time.Time { return time.Now().UTC() },
	}

	if strings.TrimSpace(storageDir) != "" {
		if err := os.MkdirAll(storageDir, 0o755); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
		svc.path = filepath.Join(storageDir, "sessions.json")
		if err := svc.load(); err != nil {
			return nil, err
		}
	}

	return svc, nil
}

// Create starts a session with the default lifetime.
func (s *Service) Create(accountID, userAgent, ipAddress string) (models.Session, error) {
	return s.create(accountID, userAgent, ipAddress, s.sessionDuration, false)
}

// CreatePersistent starts a long-lived "remember me" session.
func (s *Service) CreatePersistent(accountID, userAgent, ipAddress string) (models.Session, error) {
	return s.create(accountID, userAgent, ipAddress, PersistentSessionDuration, true)
}

func (s *Service) create(accountID, userAgent, ipAddress string, duration time.Duration, persistent bool) (models.Session, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return models.Session{}, ErrAccountRequired
	}
	token, err := generateToken()
	if err != nil {
		return models.Session{}, err
	}

	now := s.now()
	session := models.Session{
		Token:      token,
		AccountID:  accountID,
		Persistent: persistent,
		ExpiresAt:  now.Add(duration),
		CreatedAt:  now,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = session
	if err := s.saveLocked(); err != nil {
		delete(s.sessions, token)
		return models.Session{}, err
	}
	return session, nil
}

func (s *Service) expired(session models.Session) bool {
	return s.now().After(session.ExpiresAt)
}

// Validate returns the session for token if it exists and has not expired.
func (s *Service) Validate(token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrInvalidToken
	}

	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if s.expired(session) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return models.Session{}, ErrSessionExpired
	}
	return session, nil
}

// Revoke invalidates a session by its token.
func (s *Service) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, token)
	return s.saveLocked()
}

// RevokeAllForAccount invalidates every session of an account, optionally
// sparing one token (the caller's own session after a password change).
func (s *Service) RevokeAllForAccount(accountID, keepToken string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, session := range s.sessions {
		if session.AccountID == accountID && token != keepToken {
			delete(s.sessions, token)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.saveLocked()
}

// GetSessionsForAccount returns active sessions for an account, newest first.
func (s *Service) GetSessionsForAccount(accountID string) []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := []models.Session{}
	for _, session := range s.sessions {
		if session.AccountID == accountID && !s.expired(session) {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}

// Refresh extends a session's expiration time. Persistent sessions keep
// their longer lifetime.
func (s *Service) Refresh(token string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if s.expired(session) {
		delete(s.sessions, token)
		_ = s.saveLocked()
		return models.Session{}, ErrSessionExpired
	}

	duration := s.sessionDuration
	if session.Persistent {
		duration = PersistentSessionDuration
	}
	prev := session
	session.ExpiresAt = s.now().Add(duration)
	s.sessions[token] = session
	if err := s.saveLocked(); err != nil {
		s.sessions[token] = prev
		return models.Session{}, err
	}
	return session, nil
}

// Cleanup removes all expired sessions and reports how many were dropped.
func (s *Service) Cleanup() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, token)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.saveLocked()
}

// Count returns the number of stored sessions, expired ones included until
// the next Cleanup.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func generateToken() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) load() error {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open sessions file: %w", err)
	}
	defer file.Close()

	var stored []models.Session
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}

	s.sessions = make(map[string]models.Session, len(stored))
	for _, session := range stored {
		if strings.TrimSpace(session.Token) == "" || s.expired(session) {
			continue
		}
		s.sessions[session.Token] = session
	}
	return nil
}

// saveLocked writes sessions to disk. Must be called with mu held.
func (s *Service) saveLocked() error {
	if s.path == "" {
		return nil
	}

	sessions := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create sessions temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync sessions: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close sessions temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}

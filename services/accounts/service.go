package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"cinetrail/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmail       = errors.New("email address is not valid")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const (
	MinPasswordLength = 8

	bootstrapPasswordLength = 20
)

// dummyHash is compared against when the email is unknown so lookups and
// mismatches take a similar amount of time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("cinetrail-dummy-password"), bcrypt.DefaultCost)

// Service manages persistence of user accounts.
type Service struct {
	mu       sync.RWMutex
	path     string
	accounts map[string]models.Account
}

// NewService creates an accounts service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create accounts dir: %w", err)
	}

	svc := &Service{
		path:     filepath.Join(storageDir, "accounts.json"),
		accounts: make(map[string]models.Account),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func hashPassword(pw string) (string, error) {
	if len(pw) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Get returns the account with the given ID if present.
func (s *Service) Get(id string) (models.Account, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	return account, ok
}

// GetByEmail looks an account up by email, ignoring case.
func (s *Service) GetByEmail(email string) (models.Account, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findByEmailLocked(email)
}

func (s *Service) findByEmailLocked(email string) (models.Account, bool) {
	for _, a := range s.accounts {
		if a.Email == email {
			return a, true
		}
	}
	return models.Account{}, false
}

// Register creates an account. The display name defaults to the local part
// of the email address.
func (s *Service) Register(email, pw, name string) (models.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Account{}, err
	}
	hash, err := hashPassword(pw)
	if err != nil {
		return models.Account{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findByEmailLocked(email); exists {
		return models.Account{}, ErrEmailExists
	}

	now := time.Now().UTC()
	account := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[account.ID] = account

	if err := s.saveLocked(); err != nil {
		delete(s.accounts, account.ID)
		return models.Account{}, err
	}
	return account, nil
}

// Authenticate verifies the email and password, returning the account if valid.
func (s *Service) Authenticate(email, pw string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || pw == "" {
		return models.Account{}, ErrInvalidCredentials
	}

	s.mu.RLock()
	account, found := s.findByEmailLocked(email)
	s.mu.RUnlock()

	if !found {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pw))
		return models.Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(pw)); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Rename changes the display name for an account.
func (s *Service) Rename(id, name string) (models.Account, error) {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[strings.TrimSpace(id)]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	if name == "" {
		name = account.Email[:strings.IndexByte(account.Email, '@')]
	}

	prev := account
	account.Name = name
	account.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID] = account

	if err := s.saveLocked(); err != nil {
		s.accounts[account.ID] = prev
		return models.Account{}, err
	}
	return account, nil
}

// UpdatePassword changes the password for an account.
func (s *Service) UpdatePassword(id, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[strings.TrimSpace(id)]
	if !ok {
		return ErrAccountNotFound
	}

	prev := account
	account.PasswordHash = hash
	account.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID] = account

	if err := s.saveLocked(); err != nil {
		s.accounts[account.ID] = prev
		return err
	}
	return nil
}

// Delete removes an account by ID.
func (s *Service) Delete(id string) error {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(s.accounts, id)

	if err := s.saveLocked(); err != nil {
		s.accounts[id] = account
		return err
	}
	return nil
}

// EnsureBootstrapAccount creates an account for email with a generated
// password when none exists. The password is only returned on creation;
// an empty string means the account was already there.
func (s *Service) EnsureBootstrapAccount(email string) (models.Account, string, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return models.Account{}, "", err
	}
	if existing, ok := s.GetByEmail(normalized); ok {
		return existing, "", nil
	}

	generated, err := password.Generate(bootstrapPasswordLength, 4, 0, false, true)
	if err != nil {
		return models.Account{}, "", fmt.Errorf("generate bootstrap password: %w", err)
	}
	account, err := s.Register(normalized, generated, "")
	if errors.Is(err, ErrEmailExists) {
		existing, _ := s.GetByEmail(normalized)
		return existing, "", nil
	}
	if err != nil {
		return models.Account{}, "", err
	}
	return account, generated, nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open accounts file: %w", err)
	}
	defer file.Close()

	var stored []models.AccountStorage
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode accounts: %w", err)
	}

	s.accounts = make(map[string]models.Account, len(stored))
	for _, entry := range stored {
		if strings.TrimSpace(entry.ID) == "" {
			continue
		}
		account := entry.ToAccount()
		account.Email = strings.ToLower(account.Email)
		if account.CreatedAt.IsZero() {
			account.CreatedAt = time.Now().UTC()
		}
		if account.UpdatedAt.IsZero() {
			account.UpdatedAt = account.CreatedAt
		}
		s.accounts[account.ID] = account
	}
	return nil
}

func (s *Service) saveLocked() error {
	storage := make([]models.AccountStorage, 0, len(s.accounts))
	for _, account := range s.accounts {
		storage = append(storage, account.ToStorage())
	}
	sort.Slice(storage, func(i, j int) bool {
		return storage[i].CreatedAt.Before(storage[j].CreatedAt)
	})

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create accounts temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(storage); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync accounts: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close accounts temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}

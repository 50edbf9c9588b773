// Package auth composes accounts and sessions into the login flow used by the
// HTTP layer.
package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"cinetrail/models"
	"cinetrail/services/accounts"
	"cinetrail/services/sessions"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type accountStore interface {
	Register(email, password, name string) (models.Account, error)
	Authenticate(email, password string) (models.Account, error)
	Get(id string) (models.Account, bool)
}

type sessionStore interface {
	Create(accountID, userAgent, ipAddress string) (models.Session, error)
	CreatePersistent(accountID, userAgent, ipAddress string) (models.Session, error)
	Validate(token string) (models.Session, error)
	Revoke(token string) error
}

// Client identifies the device a session is issued to.
type Client struct {
	UserAgent string
	IPAddress string
}

// Result is what a successful Register or Login hands back.
type Result struct {
	Account models.Account `json:"account"`
	Session models.Session `json:"session"`
}

type Provider struct {
	accounts accountStore
	sessions sessionStore
	log      *slog.Logger
}

func NewProvider(accountsSvc accountStore, sessionsSvc sessionStore) *Provider {
	return &Provider{
		accounts: accountsSvc,
		sessions: sessionsSvc,
		log:      slog.Default().With("component", "auth"),
	}
}

// Register creates an account and signs it in.
func (p *Provider) Register(email, password, name string, client Client) (Result, error) {
	account, err := p.accounts.Register(email, password, name)
	if err != nil {
		return Result{}, err
	}
	session, err := p.sessions.Create(account.ID, client.UserAgent, client.IPAddress)
	if err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	p.log.Info("account registered", "accountId", account.ID)
	return Result{Account: account, Session: session}, nil
}

// Login verifies credentials and issues a session. rememberMe selects the
// long-lived session kind.
func (p *Provider) Login(email, password string, rememberMe bool, client Client) (Result, error) {
	account, err := p.accounts.Authenticate(email, password)
	if err != nil {
		return Result{}, err
	}

	var session models.Session
	if rememberMe {
		session, err = p.sessions.CreatePersistent(account.ID, client.UserAgent, client.IPAddress)
	} else {
		session, err = p.sessions.Create(account.ID, client.UserAgent, client.IPAddress)
	}
	if err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	return Result{Account: account, Session: session}, nil
}

// Logout deletes the current session. Unknown tokens are not an error.
func (p *Provider) Logout(token string) error {
	err := p.sessions.Revoke(token)
	if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		return err
	}
	return nil
}

// CurrentAccount resolves a bearer token to its account.
func (p *Provider) CurrentAccount(token string) (models.Account, error) {
	session, err := p.sessions.Validate(token)
	if err != nil {
		return models.Account{}, ErrNotAuthenticated
	}
	account, ok := p.accounts.Get(session.AccountID)
	if !ok {
		return models.Account{}, fmt.Errorf("session account %s: %w", session.AccountID, accounts.ErrAccountNotFound)
	}
	return account, nil
}

package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetrail/services/accounts"
	"cinetrail/services/sessions"
)

func newTestProvider(t *testing.T) (*Provider, *accounts.Service, *sessions.Service) {
	t.Helper()
	dir := t.TempDir()
	accountsSvc, err := accounts.NewService(dir)
	require.NoError(t, err)
	sessionsSvc, err := sessions.NewService(dir, 0)
	require.NoError(t, err)
	return NewProvider(accountsSvc, sessionsSvc), accountsSvc, sessionsSvc
}

func TestRegisterSignsIn(t *testing.T) {
	p, _, _ := newTestProvider(t)

	res, err := p.Register("ana@example.com", "password123", "Ana", Client{UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", res.Account.Email)
	assert.Equal(t, res.Account.ID, res.Session.AccountID)
	assert.Equal(t, "test", res.Session.UserAgent)

	current, err := p.CurrentAccount(res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, current.ID)
}

func TestRegisterPropagatesValidation(t *testing.T) {
	p, _, sessionsSvc := newTestProvider(t)

	_, err := p.Register("ana@example.com", "short", "", Client{})
	assert.ErrorIs(t, err, accounts.ErrPasswordTooShort)
	assert.Zero(t, sessionsSvc.Count())
}

func TestLogin(t *testing.T) {
	p, accountsSvc, _ := newTestProvider(t)
	_, err := accountsSvc.Register("ana@example.com", "password123", "")
	require.NoError(t, err)

	res, err := p.Login("ana@example.com", "password123", false, Client{})
	require.NoError(t, err)
	assert.False(t, res.Session.Persistent)

	remembered, err := p.Login("ana@example.com", "password123", true, Client{})
	require.NoError(t, err)
	assert.True(t, remembered.Session.Persistent)

	_, err = p.Login("ana@example.com", "nope-nope", false, Client{})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	p, _, _ := newTestProvider(t)
	res, err := p.Register("ana@example.com", "password123", "", Client{})
	require.NoError(t, err)

	require.NoError(t, p.Logout(res.Session.Token))
	_, err = p.CurrentAccount(res.Session.Token)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	assert.NoError(t, p.Logout(res.Session.Token), "second logout is a no-op")
}

func TestCurrentAccountDeletedAccount(t *testing.T) {
	p, accountsSvc, _ := newTestProvider(t)
	res, err := p.Register("ana@example.com", "password123", "", Client{})
	require.NoError(t, err)
	require.NoError(t, accountsSvc.Delete(res.Account.ID))

	_, err = p.CurrentAccount(res.Session.Token)
	assert.True(t, errors.Is(err, accounts.ErrAccountNotFound))
}

func TestCurrentAccountUnknownToken(t *testing.T) {
	p, _, _ := newTestProvider(t)
	_, err := p.CurrentAccount("")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

package auth

import (
	"context"
	"fmt"
	"strings"

	"apparel/storefront/internal/config"
	"apparel/storefront/internal/domain"
	"apparel/storefront/internal/state"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator is a stand-in for real authentication: it checks a
// username and password against configured accounts and remembers who is
// signed in. It grants no capabilities beyond the admin flag on the record.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.User, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*domain.User, error)
}

type account struct {
	user         domain.User
	passwordHash []byte
}

type authenticator struct {
	accounts map[string]account
	store    state.SessionStore
}

func NewAuthenticator(cfg config.AuthConfig, store state.SessionStore) Authenticator {
	accounts := make(map[string]account, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		id := a.ID
		if id == "" {
			id = a.Username
		}
		accounts[strings.ToLower(a.Username)] = account{
			user:         domain.User{ID: id, Username: a.Username, IsAdmin: a.Admin},
			passwordHash: []byte(a.PasswordHash),
		}
	}
	return &authenticator{accounts: accounts, store: store}
}

func (a *authenticator) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	acc, ok := a.accounts[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
	}

	if err := a.store.Save(ctx, acc.user); err != nil {
		return nil, fmt.Errorf("failed to remember login: %w", err)
	}

	log.Infof("User %s signed in (admin=%t)", acc.user.Username, acc.user.IsAdmin)
	user := acc.user
	return &user, nil
}

func (a *authenticator) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	log.Info("User signed out")
	return nil
}

// Current returns the signed-in user or nil.
func (a *authenticator) Current(ctx context.Context) (*domain.User, error) {
	return a.store.Load(ctx)
}

// HashPassword produces a bcrypt hash suitable for the auth.accounts config.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

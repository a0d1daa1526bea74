package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/store"
)

const (
	// AccountsKey holds the registered accounts collection.
	AccountsKey = "netflix-users"
	// SessionKey holds the full account record of the signed-in user.
	SessionKey = "netflix-user"
	// DefaultAuthDelay emulates the latency of a remote auth call.
	DefaultAuthDelay = time.Second
)

var _ model.AccountStore = (*Auth)(nil)

// Auth keeps registered accounts and the current session in storage.
// The signed-in user is only ever exposed without its password.
type Auth struct {
	store  *store.Store
	logger *logger.Logger
	delay  time.Duration
	newID  func() string

	mu       sync.RWMutex
	user     *model.User
	ready    atomic.Bool
	inflight atomic.Int32
}

// NewAuth creates the account store and restores a persisted session.
func NewAuth(ctx context.Context, st *store.Store, logger *logger.Logger, delay time.Duration) *Auth {
	a := &Auth{
		store:  st,
		logger: logger,
		delay:  delay,
		newID:  uuid.NewString,
	}
	a.rehydrate(ctx)
	return a
}

func (a *Auth) rehydrate(ctx context.Context) {
	defer a.ready.Store(true)

	account, ok := store.Load[model.Account](ctx, a.store, SessionKey)
	if !ok {
		a.logger.Debug("Auth service: no persisted session")
		return
	}

	user := account.Public()
	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()

	a.logger.Debug("Auth service: session restored",
		"user_id", user.ID)
}

// IsLoading reports whether the session check or a login/signup is pending.
func (a *Auth) IsLoading() bool {
	return !a.ready.Load() || a.inflight.Load() > 0
}

// CurrentUser returns the signed-in user.
func (a *Auth) CurrentUser() (model.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return model.User{}, false
	}
	return *a.user, true
}

// ListAccounts returns the registered accounts, seeding the demo account
// the first time the collection is missing.
func (a *Auth) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts, ok := store.Load[[]model.Account](ctx, a.store, AccountsKey)
	if ok {
		return accounts, nil
	}

	seeded := []model.Account{model.DemoAccount()}
	if err := store.Save(ctx, a.store, AccountsKey, seeded); err != nil {
		a.logger.Error("Auth service: failed to seed accounts",
			"error", err.Error())
		return nil, fmt.Errorf("failed to seed accounts: %w", err)
	}

	a.logger.Info("Auth service: seeded demo account")

	return seeded, nil
}

// Login signs in the account whose email and password both match exactly.
func (a *Auth) Login(ctx context.Context, email, password string) (model.User, error) {
	a.inflight.Add(1)
	defer a.inflight.Add(-1)

	a.logger.Debug("Auth service: starting login",
		"email", email)

	if err := a.wait(ctx); err != nil {
		return model.User{}, err
	}

	accounts, err := a.ListAccounts(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, account := range accounts {
		if account.Email == email && account.Password == password {
			return a.establish(ctx, account)
		}
	}

	a.logger.Info("Auth service: invalid credentials",
		"email", email)

	return model.User{}, model.ErrInvalidCredentials
}

// Signup registers a new account and signs it in.
func (a *Auth) Signup(ctx context.Context, name, email, password string) (model.User, error) {
	a.inflight.Add(1)
	defer a.inflight.Add(-1)

	a.logger.Debug("Auth service: starting signup",
		"email", email)

	if err := a.wait(ctx); err != nil {
		return model.User{}, err
	}

	accounts, err := a.ListAccounts(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, account := range accounts {
		if account.Email == email {
			a.logger.Info("Auth service: email already registered",
				"email", email)
			return model.User{}, model.ErrEmailAlreadyRegistered
		}
	}

	account := model.Account{
		ID:       a.newID(),
		Email:    email,
		Name:     name,
		Password: password,
	}

	if err := store.Save(ctx, a.store, AccountsKey, append(accounts, account)); err != nil {
		a.logger.Error("Auth service: failed to save accounts",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to save accounts: %w", err)
	}

	a.logger.Info("Auth service: account registered",
		"user_id", account.ID,
		"email", email)

	return a.establish(ctx, account)
}

// Logout ends the session. The in-memory session is always cleared.
func (a *Auth) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.user = nil
	if err := a.store.Remove(ctx, SessionKey); err != nil {
		a.logger.Error("Auth service: failed to remove persisted session",
			"error", err.Error())
		return fmt.Errorf("failed to remove session: %w", err)
	}

	a.logger.Info("Auth service: logged out")

	return nil
}

// establish persists the full account as the session and adopts its public
// view. Both happen under a.mu so the stored and in-memory sessions name the
// same account.
func (a *Auth) establish(ctx context.Context, account model.Account) (model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := store.Save(ctx, a.store, SessionKey, account); err != nil {
		a.logger.Error("Auth service: failed to persist session",
			"user_id", account.ID,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to persist session: %w", err)
	}

	user := account.Public()
	a.user = &user

	a.logger.Info("Auth service: session established",
		"user_id", user.ID)

	return user, nil
}

func (a *Auth) wait(ctx context.Context) error {
	if a.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(a.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("auth interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// IsAuthError reports whether err is an expected credential failure rather
// than a storage problem.
func IsAuthError(err error) bool {
	return errors.Is(err, model.ErrInvalidCredentials) ||
		errors.Is(err, model.ErrEmailAlreadyRegistered) ||
		errors.Is(err, model.ErrMissingFields)
}

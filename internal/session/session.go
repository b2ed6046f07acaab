// Package session holds who is signed in for one browser: the bearer token
// kept in that browser's storage and the profile it resolves to.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
)

// TokenKey is the storage key the bearer token is kept under.
const TokenKey = "access_token"

// Storage is a per-browser key/value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is built once per page load. Profile is set only while a token is
// held that the API accepted.
type Session struct {
	storage Storage
	base    *api.Client
	client  *api.Client
	log     *zap.Logger

	restore sync.Once

	mu      sync.RWMutex
	state   State
	token   string
	profile *api.User
}

// New returns a session in the Loading state. base must carry no
// credentials; the session attaches its own.
func New(storage Storage, base *api.Client, log *zap.Logger) *Session {
	s := &Session{storage: storage, base: base, log: log, state: Loading}
	s.client = base.WithCredentials(s)
	return s
}

// Restore loads the persisted token and validates it against /auth/me. It runs
// once; later calls return immediately. A token that fails validation is
// removed from storage.
func (s *Session) Restore(ctx context.Context) {
	s.restore.Do(func() { s.doRestore(ctx) })
}

func (s *Session) doRestore(ctx context.Context) {
	tok, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.log.Warn("read stored token", zap.Error(err))
		s.settle(Unauthenticated, "", nil)
		return
	}
	if !ok || tok == "" {
		s.settle(Unauthenticated, "", nil)
		return
	}

	u, err := s.base.WithCredentials(api.StaticToken(tok)).Me(ctx)
	if err != nil {
		s.log.Info("stored token rejected", zap.Error(err))
		if rmErr := s.storage.Remove(ctx, TokenKey); rmErr != nil {
			s.log.Warn("remove stored token", zap.Error(rmErr))
		}
		s.settle(Unauthenticated, "", nil)
		return
	}
	s.settle(Authenticated, tok, u)
}

func (s *Session) settle(state State, tok string, u *api.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.token, s.profile = state, tok, u
}

// SignIn exchanges credentials for a token, resolves the profile and only then
// persists the token. On any failure the session is left as it was.
func (s *Session) SignIn(ctx context.Context, username, password string) error {
	tok, err := s.base.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	u, err := s.base.WithCredentials(api.StaticToken(tok)).Me(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if err := s.storage.Set(ctx, TokenKey, tok); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	// A later Restore must not overwrite a fresh sign-in.
	s.restore.Do(func() {})
	s.settle(Authenticated, tok, u)
	s.log.Info("signed in", zap.String("username", u.Username))
	return nil
}

// SignOut forgets the token. Memory is cleared even when storage fails; the
// storage error is still returned.
func (s *Session) SignOut(ctx context.Context) error {
	s.restore.Do(func() {})
	s.settle(Unauthenticated, "", nil)
	if err := s.storage.Remove(ctx, TokenKey); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// CredentialRejected is called by the API client when a request carrying the
// session token was answered 401.
func (s *Session) CredentialRejected() {
	s.mu.RLock()
	held := s.token != ""
	s.mu.RUnlock()
	if !held {
		return
	}
	s.log.Info("credential rejected by api, signing out")
	// The failed request's context may already be cancelled.
	if err := s.SignOut(context.Background()); err != nil {
		s.log.Warn("sign out after rejection", zap.Error(err))
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Profile() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Client is the API client authenticated with this session's token.
func (s *Session) Client() *api.Client { return s.client }

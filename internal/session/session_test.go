package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/apitest"
	"github.com/fapagri/console/internal/db"
	"github.com/fapagri/console/internal/session"
)

type fixture struct {
	srv  *apitest.Server
	base *api.Client
	ana  api.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	srv := apitest.Start(t)
	name := "Ana Putri"
	ana := srv.AddUser(api.User{Username: "ana", FullName: &name, Role: "admin"}, "secret")
	base, err := api.New(srv.URL())
	require.NoError(t, err)
	return fixture{srv: srv, base: base, ana: ana}
}

func (f fixture) session(st session.Storage) *session.Session {
	return session.New(st, f.base, zap.NewNop())
}

func stored(t *testing.T, st session.Storage) (string, bool) {
	t.Helper()
	v, ok, err := st.Get(context.Background(), session.TokenKey)
	require.NoError(t, err)
	return v, ok
}

func TestRestoreWithoutToken(t *testing.T) {
	f := setup(t)
	s := f.session(session.NewMemoryStorage())
	assert.Equal(t, session.Loading, s.State())

	s.Restore(context.Background())
	assert.Equal(t, session.Unauthenticated, s.State())
	assert.Nil(t, s.Profile())
	assert.Empty(t, s.Token())
	assert.Zero(t, f.srv.Count(http.MethodGet, "/auth/me"), "no token, no profile request")
}

func TestSignInPersistsAndRestores(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()

	s := f.session(st)
	require.NoError(t, s.SignIn(ctx, "ana", "secret"))
	assert.Equal(t, session.Authenticated, s.State())
	require.NotNil(t, s.Profile())
	assert.Equal(t, "Ana Putri", s.Profile().DisplayName())

	tok, ok := stored(t, st)
	require.True(t, ok)
	assert.Equal(t, s.Token(), tok)

	// A new page load over the same storage.
	again := f.session(st)
	again.Restore(ctx)
	assert.Equal(t, session.Authenticated, again.State())
	assert.Equal(t, f.ana.ID, again.Profile().ID)
	assert.Equal(t, tok, again.Token())

	me, ok := f.srv.Last(http.MethodGet, "/auth/me")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+tok, me.Auth)
}

func TestSignInFailureLeavesStateUnchanged(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("signed out", func(t *testing.T) {
		st := session.NewMemoryStorage()
		s := f.session(st)
		s.Restore(ctx)

		err := s.SignIn(ctx, "ana", "wrong")
		require.Error(t, err)
		assert.True(t, api.IsUnauthorized(err))
		assert.Equal(t, session.Unauthenticated, s.State())
		assert.Nil(t, s.Profile())
		_, ok := stored(t, st)
		assert.False(t, ok)
	})

	t.Run("signed in", func(t *testing.T) {
		st := session.NewMemoryStorage()
		s := f.session(st)
		require.NoError(t, s.SignIn(ctx, "ana", "secret"))
		before := s.Token()

		require.Error(t, s.SignIn(ctx, "ana", "wrong"))
		assert.Equal(t, session.Authenticated, s.State())
		assert.Equal(t, before, s.Token())
		tok, _ := stored(t, st)
		assert.Equal(t, before, tok)
	})
}

func TestSignInProfileFailureDoesNotPersist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()
	f.srv.Fail(http.MethodGet, "/auth/me", http.StatusInternalServerError, "db down")

	s := f.session(st)
	require.Error(t, s.SignIn(ctx, "ana", "secret"))
	assert.Nil(t, s.Profile())
	assert.Empty(t, s.Token())
	_, ok := stored(t, st)
	assert.False(t, ok)
}

func TestRestoreClearsRejectedToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()
	require.NoError(t, st.Set(ctx, session.TokenKey, "tok-stale"))

	s := f.session(st)
	s.Restore(ctx)
	assert.Equal(t, session.Unauthenticated, s.State())
	assert.Nil(t, s.Profile())
	_, ok := stored(t, st)
	assert.False(t, ok)
}

func TestRestoreRunsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()
	require.NoError(t, st.Set(ctx, session.TokenKey, f.srv.IssueToken("ana")))

	s := f.session(st)
	s.Restore(ctx)
	s.Restore(ctx)
	assert.Equal(t, 1, f.srv.Count(http.MethodGet, "/auth/me"))
}

func TestRestoreStorageError(t *testing.T) {
	f := setup(t)
	st := session.NewMemoryStorage()
	st.Fail(errors.New("disk gone"))

	s := f.session(st)
	s.Restore(context.Background())
	assert.Equal(t, session.Unauthenticated, s.State())
}

func TestSignOutIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()
	s := f.session(st)
	require.NoError(t, s.SignIn(ctx, "ana", "secret"))
	calls := len(f.srv.Requests())

	require.NoError(t, s.SignOut(ctx))
	require.NoError(t, s.SignOut(ctx))
	assert.Equal(t, session.Unauthenticated, s.State())
	assert.Nil(t, s.Profile())
	assert.Empty(t, s.Token())
	_, ok := stored(t, st)
	assert.False(t, ok)
	assert.Len(t, f.srv.Requests(), calls, "sign out makes no network call")
}

func TestSignOutClearsMemoryWhenStorageFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()
	s := f.session(st)
	require.NoError(t, s.SignIn(ctx, "ana", "secret"))

	st.Fail(errors.New("disk gone"))
	assert.Error(t, s.SignOut(ctx))
	assert.Nil(t, s.Profile())
	assert.Empty(t, s.Token())
}

func TestClientCarriesSessionToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.session(session.NewMemoryStorage())
	s.Restore(ctx)

	_, err := s.Client().Plantations(ctx)
	assert.True(t, api.IsUnauthorized(err))
	req, _ := f.srv.Last(http.MethodGet, "/plantations/")
	assert.Empty(t, req.Auth)

	require.NoError(t, s.SignIn(ctx, "ana", "secret"))
	_, err = s.Client().Plantations(ctx)
	require.NoError(t, err)
	req, _ = f.srv.Last(http.MethodGet, "/plantations/")
	assert.Equal(t, "Bearer "+s.Token(), req.Auth)
}

func TestExpiredTokenSignsOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := session.NewMemoryStorage()
	s := f.session(st)
	require.NoError(t, s.SignIn(ctx, "ana", "secret"))

	f.srv.RevokeTokens()
	_, err := s.Client().Harvests(ctx)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, session.Unauthenticated, s.State())
	assert.Nil(t, s.Profile())
	_, ok := stored(t, st)
	assert.False(t, ok)
}

func TestSessionOverSQLiteStorage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	store, err := db.Open(dir, zap.NewNop())
	require.NoError(t, err)
	s := f.session(store.Scope("browser-1"))
	require.NoError(t, s.SignIn(ctx, "ana", "secret"))
	require.NoError(t, store.Close())

	store, err = db.Open(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	restored := f.session(store.Scope("browser-1"))
	restored.Restore(ctx)
	assert.Equal(t, session.Authenticated, restored.State())

	other := f.session(store.Scope("browser-2"))
	other.Restore(ctx)
	assert.Equal(t, session.Unauthenticated, other.State())
}

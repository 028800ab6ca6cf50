package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/repository"
)

type captureMailer struct {
	mu     sync.Mutex
	to     []string
	tokens []string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.tokens = append(m.tokens, token)
	return nil
}

func newAuth(t *testing.T) (*Authenticator, *docstore.Memory, *captureMailer) {
	t.Helper()
	store := docstore.NewMemory()
	mail := &captureMailer{}
	a := NewAuthenticator(Config{
		Secret:     "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ResetTTL:   time.Hour,
		BcryptCost: 4,
	}, store, mail)
	return a, store, mail
}

func TestRegisterCreatesProfile(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAuth(t)

	s, err := a.Register(ctx, "Ann@Example.com", "hunter22", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", s.Principal.Email)

	u, err := repository.NewUserRepo(store).Get(ctx, s.Principal.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.False(t, u.Admin)

	p, err := a.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.Principal, p)

	_, err = a.Register(ctx, "ann@example.com", "x", "Dup")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterSameEmailConcurrently(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAuth(t)

	var (
		wg     sync.WaitGroup
		ok     atomic.Int32
		exists atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Register(ctx, "dup@example.com", "hunter22", "Dup")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, repository.ErrEmailExists):
				exists.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), exists.Load())

	creds, err := store.Query(ctx, repository.Credentials,
		docstore.Query{}.Where("email", docstore.OpEq, "dup@example.com"))
	require.NoError(t, err)
	assert.Len(t, creds, 1)
	users, err := store.Query(ctx, repository.Users, docstore.Query{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

// failingProfiles rejects writes to the users collection while fail is set.
type failingProfiles struct {
	*docstore.Memory
	fail atomic.Bool
}

func (s *failingProfiles) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if collection == repository.Users && s.fail.Load() {
		return errors.New("users unavailable")
	}
	return s.Memory.Set(ctx, collection, id, data)
}

func TestRegisterRollsBackWithoutProfile(t *testing.T) {
	ctx := context.Background()
	store := &failingProfiles{Memory: docstore.NewMemory()}
	a := NewAuthenticator(Config{Secret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: 4}, store, nil)

	store.fail.Store(true)
	_, err := a.Register(ctx, "ann@example.com", "hunter22", "Ann")
	require.Error(t, err)

	creds, err := store.Query(ctx, repository.Credentials, docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, creds)

	store.fail.Store(false)
	s, err := a.Register(ctx, "ann@example.com", "hunter22", "Ann")
	require.NoError(t, err)
	_, err = a.Login(ctx, "ann@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Principal.UID)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t)
	_, err := a.Register(ctx, "ann@example.com", "hunter22", "Ann")
	require.NoError(t, err)

	_, err = a.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s, err := a.Login(ctx, "ANN@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, s.RefreshToken)
}

func TestRefreshRotates(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t)
	s, err := a.Register(ctx, "ann@example.com", "hunter22", "Ann")
	require.NoError(t, err)

	next, err := a.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)
	assert.Equal(t, s.Principal, next.Principal)

	_, err = a.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "old token is revoked")

	require.NoError(t, a.Logout(ctx, next.RefreshToken))
	_, err = a.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	a, _, mail := newAuth(t)
	s, err := a.Register(ctx, "ann@example.com", "hunter22", "Ann")
	require.NoError(t, err)

	require.NoError(t, a.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mail.tokens, "unknown email sends nothing")

	require.NoError(t, a.RequestPasswordReset(ctx, "ann@example.com"))
	require.Len(t, mail.tokens, 1)
	assert.Equal(t, "ann@example.com", mail.to[0])

	require.NoError(t, a.ResetPassword(ctx, mail.tokens[0], "newpass1"))
	assert.ErrorIs(t, a.ResetPassword(ctx, mail.tokens[0], "again"), ErrInvalidToken)

	_, err = a.Login(ctx, "ann@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "ann@example.com", "newpass1")
	assert.NoError(t, err)

	_, err = a.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "reset signs out existing sessions")
}

func TestVerifyRejectsGarbage(t *testing.T) {
	a, _, _ := newAuth(t)
	_, err := a.Verify("nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type failingLogout struct {
	Backend
	err error
}

func (f failingLogout) Logout(context.Context, string) error { return f.err }

func TestClientNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t)
	c := NewClient(a)

	var seen []*model.Principal
	unsub := c.OnStateChanged(func(p *model.Principal) { seen = append(seen, p) })
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0], "fires immediately with the signed-out state")

	p, err := c.SignUp(ctx, "ann@example.com", "hunter22", "Ann")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, p.UID, seen[1].UID)
	assert.NotEmpty(t, c.AccessToken())

	require.NoError(t, c.RefreshSession(ctx))
	require.Len(t, seen, 3)
	assert.Equal(t, p.UID, seen[2].UID)

	require.NoError(t, c.SignOut(ctx))
	require.Len(t, seen, 4)
	assert.Nil(t, seen[3])
	assert.Nil(t, c.Current())

	unsub()
	unsub()
	_, err = c.SignIn(ctx, "ann@example.com", "hunter22")
	require.NoError(t, err)
	assert.Len(t, seen, 4, "unsubscribed listener is not called")
}

func TestClientSignOutFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t)
	_, err := a.Register(ctx, "ann@example.com", "hunter22", "Ann")
	require.NoError(t, err)

	boom := errors.New("network down")
	c := NewClient(failingLogout{Backend: a, err: boom})
	_, err = c.SignIn(ctx, "ann@example.com", "hunter22")
	require.NoError(t, err)

	assert.ErrorIs(t, c.SignOut(ctx), boom)
	assert.NotNil(t, c.Current())
}

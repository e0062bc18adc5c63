package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

type mockCredentials struct {
	byEmail map[string]*credentials
}

func (m *mockCredentials) findCredentials(ctx context.Context, email string) (*credentials, error) {
	cred, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	return cred, nil
}

func newTestSessions(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "test-signing-secret", time.Hour), mr
}

func newTestService(t *testing.T) (*Service, *SessionStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	schoolID := int64(2)
	repo := &mockCredentials{byEmail: map[string]*credentials{
		"jamie@school.test": {StaffID: 7, PasswordHash: string(hash), SchoolID: &schoolID},
	}}
	sessions, _ := newTestSessions(t)
	return NewService(repo, sessions), sessions
}

func TestLoginCreatesResolvableSession(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "jamie@school.test", "open sesame")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, int64(7), session.Actor.ID)

	actor, err := sessions.Get(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, int64(7), actor.ID)
	require.NotNil(t, actor.SchoolID)
	assert.Equal(t, int64(2), *actor.SchoolID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "jamie@school.test", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "ghost@school.test", "open sesame")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "jamie@school.test", "open sesame")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, session.Token))

	actor, err := sessions.Get(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, actor)
}

func TestSessionExpiresWithTTL(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	session, err := sessions.Create(ctx, shared.Actor{ID: 9})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	actor, err := sessions.Get(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, actor)
}

// Tokens are HMAC-signed with the configured secret: a tampered signature,
// a bare session id, or a token minted under another secret all resolve to
// nothing, the same as an expired session.
func TestForgedTokenRejected(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	session, err := sessions.Create(ctx, shared.Actor{ID: 9})
	require.NoError(t, err)

	id, _, ok := strings.Cut(session.Token, ".")
	require.True(t, ok)

	for _, token := range []string{id, id + ".forged"} {
		actor, err := sessions.Get(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, actor)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	other := NewSessionStore(client, "rotated-secret", time.Hour)
	actor, err := other.Get(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, actor)
}

func TestAuthenticatorMiddleware(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	session, err := sessions.Create(ctx, shared.Actor{ID: 11})
	require.NoError(t, err)

	var seen *shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticator{Sessions: sessions}.Middleware(next)

	t.Run("valid token resolves actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(11), seen.ID)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-session")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("store outage is unavailable", func(t *testing.T) {
		mr.Close()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

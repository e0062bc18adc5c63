package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

const sessionKeyPrefix = "session:"

// SessionStore keeps actor snapshots in Redis keyed by session id. Issued
// tokens carry an HMAC of the id, so forged or corrupted bearer tokens are
// rejected without a Redis round trip.
type SessionStore struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore signing tokens with secret.
func NewSessionStore(client *redis.Client, secret string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, secret: []byte(secret), ttl: ttl}
}

type sessionPayload struct {
	Actor shared.Actor `json:"actor"`
}

func (s *SessionStore) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify splits a bearer token into session id and signature and checks the
// signature. Tokens that fail are indistinguishable from expired sessions.
func (s *SessionStore) verify(token string) (string, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(id))) {
		return "", false
	}
	return id, true
}

// Create stores a fresh session for the actor and returns it.
func (s *SessionStore) Create(ctx context.Context, actor shared.Actor) (Session, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(sessionPayload{Actor: actor})
	if err != nil {
		return Session{}, err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+id, payload, s.ttl).Err(); err != nil {
		return Session{}, err
	}
	token := id + "." + s.sign(id)
	return Session{Token: token, Actor: actor, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

// Get resolves a token to its actor snapshot, nil when the signature fails
// or the session is absent or expired.
func (s *SessionStore) Get(ctx context.Context, token string) (*shared.Actor, error) {
	id, ok := s.verify(token)
	if !ok {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload.Actor, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	id, ok := s.verify(token)
	if !ok {
		return nil
	}
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// Refresh overwrites the stored actor snapshot for a live token, keeping
// the remaining TTL.
func (s *SessionStore) Refresh(ctx context.Context, token string, actor shared.Actor) error {
	id, ok := s.verify(token)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(sessionPayload{Actor: actor})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+id, payload, redis.KeepTTL).Err()
}

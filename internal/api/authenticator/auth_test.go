package authenticator

import (
	"context"
	"testing"
	"time"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := New(&config.Config{
		JWT_SECRET:   "test-secret",
		TOKEN_ISSUER: "workboard",
		TOKEN_TTL:    time.Hour,
	})
	require.NoError(t, err)
	require.False(t, a.OIDCEnabled())
	return a
}

func TestGenerateAndVerifyToken(t *testing.T) {
	a := newTestAuthenticator(t)
	u := &user.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"}

	raw, err := a.GenerateToken(u)
	require.NoError(t, err)

	token, err := a.VerifyAccessToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, user.TokenIdentifierFor("workboard", u.ID.String()), token.Identifier)
	assert.Equal(t, "ada@example.com", token.Email)
}

func TestGenerateTokenUsesLinkedIdentifier(t *testing.T) {
	a := newTestAuthenticator(t)
	linked := "https://tenant.example.com/|google-oauth2|42"
	u := &user.User{ID: uuid.New(), Email: "ada@example.com", TokenIdentifier: &linked}

	raw, err := a.GenerateToken(u)
	require.NoError(t, err)

	token, err := a.VerifyAccessToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, linked, token.Identifier)
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	a := newTestAuthenticator(t)
	u := &user.User{ID: uuid.New(), Email: "ada@example.com"}

	raw, err := a.GenerateToken(u)
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		_, err := a.VerifyAccessToken(context.Background(), raw+"x")
		assert.Error(t, err)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := New(&config.Config{JWT_SECRET: "another", TOKEN_ISSUER: "workboard", TOKEN_TTL: time.Hour})
		require.NoError(t, err)
		_, err = other.VerifyAccessToken(context.Background(), raw)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { a.now = time.Now }()
		_, err := a.VerifyAccessToken(context.Background(), raw)
		assert.Error(t, err)
	})
}

func TestSignedState(t *testing.T) {
	a := newTestAuthenticator(t)

	encoded, err := a.GetSignedState(OAuthState{
		CSRF:      "csrf",
		Redirect:  "http://localhost:3000",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	})
	require.NoError(t, err)

	state, err := a.VerifySignedState(encoded)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", state.Redirect)

	_, err = a.VerifySignedState("bm90LWEtc3RhdGU=")
	assert.Error(t, err)

	a.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = a.VerifySignedState(encoded)
	assert.EqualError(t, err, "state expired")
}

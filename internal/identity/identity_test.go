package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*user.User

func (f fakeUsers) GetByTokenIdentifier(_ context.Context, tokenIdentifier string) (*user.User, error) {
	if tokenIdentifier == "broken" {
		return nil, errors.New("connection reset")
	}
	u, ok := f[tokenIdentifier]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func TestResolverCurrent(t *testing.T) {
	alice := &user.User{ID: uuid.New(), Name: "Alice"}
	resolver := NewResolver(fakeUsers{"workboard|alice": alice})

	t.Run("no token", func(t *testing.T) {
		_, err := resolver.Current(context.Background())
		require.Error(t, err)
		assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))
	})

	t.Run("unknown token", func(t *testing.T) {
		ctx := WithToken(context.Background(), &Token{Identifier: "workboard|bob"})
		_, err := resolver.Current(ctx)
		require.Error(t, err)
		assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("known token", func(t *testing.T) {
		ctx := WithToken(context.Background(), &Token{Identifier: "workboard|alice"})
		got, err := resolver.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
	})

	t.Run("lookup failure", func(t *testing.T) {
		ctx := WithToken(context.Background(), &Token{Identifier: "broken"})
		_, err := resolver.Current(ctx)
		require.Error(t, err)
		assert.True(t, perrors.HasCode(err, perrors.ErrCodeInternalServer))
	})
}

func TestResolverOptional(t *testing.T) {
	resolver := NewResolver(fakeUsers{})

	got, err := resolver.Optional(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	ctx := WithToken(context.Background(), &Token{Identifier: "workboard|ghost"})
	got, err = resolver.Optional(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	ctx = WithToken(context.Background(), &Token{Identifier: "broken"})
	_, err = resolver.Optional(ctx)
	assert.Error(t, err)
}

func TestTokenFromIgnoresEmptyIdentifier(t *testing.T) {
	ctx := WithToken(context.Background(), &Token{})
	_, ok := TokenFrom(ctx)
	assert.False(t, ok)
}

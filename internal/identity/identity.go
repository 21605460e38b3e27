// Package identity maps the verified caller token carried on a request context
// to a user record. Resolution happens on every call; nothing is cached.
package identity

import (
	"context"
	"errors"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/user"
)

type tokenKey struct{}

// Token is what the auth layer knows about a verified caller.
type Token struct {
	Identifier string `json:"tokenIdentifier"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
}

// WithToken returns a copy of ctx carrying token.
func WithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token stored on ctx, if any.
func TokenFrom(ctx context.Context) (*Token, bool) {
	token, ok := ctx.Value(tokenKey{}).(*Token)
	if !ok || token == nil || token.Identifier == "" {
		return nil, false
	}
	return token, true
}

type UserLookup interface {
	GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*user.User, error)
}

type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// Current resolves the acting user, failing with Unauthorized when the request
// has no token or the token maps to no user.
func (r *Resolver) Current(ctx context.Context) (*user.User, error) {
	token, ok := TokenFrom(ctx)
	if !ok {
		return nil, perrors.NewErrUnauthorized("Not authenticated", errors.New("no identity token"))
	}

	u, err := r.users.GetByTokenIdentifier(ctx, token.Identifier)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, perrors.NewErrUnauthorized("User not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to resolve identity", err)
	}

	return u, nil
}

// Optional is Current for operations that also accept anonymous callers.
// It returns nil without error when there is no resolvable identity.
func (r *Resolver) Optional(ctx context.Context) (*user.User, error) {
	u, err := r.Current(ctx)
	if err != nil {
		if perrors.HasCode(err, perrors.ErrCodeUnauthorized) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

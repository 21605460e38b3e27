package memstore

import (
	"context"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

// AddUser inserts u, giving it an id and a "test|<id>" token identifier when
// those are unset, and returns it with a context authenticated as it.
func (s *Store) AddUser(u user.User) (*user.User, context.Context) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.TokenIdentifier == nil {
		tid := user.TokenIdentifierFor("test", u.ID.String())
		u.TokenIdentifier = &tid
	}
	if u.Role == "" {
		u.Role = user.RoleMember
	}
	if u.SystemRole == "" {
		u.SystemRole = user.SystemRoleUser
	}

	created, err := s.Users().Create(context.Background(), &u)
	if err != nil {
		panic(err)
	}

	ctx := identity.WithToken(context.Background(), &identity.Token{
		Identifier: *created.TokenIdentifier,
		Email:      created.Email,
		Name:       created.Name,
	})
	return created, ctx
}

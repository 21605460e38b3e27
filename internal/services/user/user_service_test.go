package user_test

import (
	"context"
	"testing"

	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	email, err := user.NormalizeEmail("  Ada@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)

	for _, bad := range []string{"", "   ", "not-an-email", "Ada <ada@example.com>"} {
		_, err := user.NormalizeEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := memstore.New()
	svc := user.NewUserService(store.Users(), "workboard")
	ctx := context.Background()

	created, err := svc.Register(ctx, &user.RegisterRequest{Name: " Ada ", Email: "Ada@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", created.Name)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, user.RoleMember, created.Role)
	assert.Equal(t, user.SystemRoleUser, created.SystemRole)
	require.NotNil(t, created.TokenIdentifier)
	assert.Equal(t, "workboard|"+created.ID.String(), *created.TokenIdentifier)
	require.NotNil(t, created.PasswordHash)
	assert.NotEqual(t, "correct horse", *created.PasswordHash)

	_, err = svc.Register(ctx, &user.RegisterRequest{Name: "Other", Email: "ada@example.com", Password: "long enough"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeConflict))

	got, err := svc.Authenticate(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong password")
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	svc := user.NewUserService(memstore.New().Users(), "workboard")

	cases := map[string]*user.RegisterRequest{
		"bad email":      {Name: "Ada", Email: "ada", Password: "long enough"},
		"missing name":   {Name: "  ", Email: "ada@example.com", Password: "long enough"},
		"short password": {Name: "Ada", Email: "ada@example.com", Password: "short"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), req)
			assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
		})
	}
}

func TestAuthenticateRejectsPasswordlessUsers(t *testing.T) {
	store := memstore.New()
	svc := user.NewUserService(store.Users(), "workboard")
	store.AddUser(user.User{Name: "Sso", Email: "sso@example.com"})

	_, err := svc.Authenticate(context.Background(), "sso@example.com", "anything at all")
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))
}

func TestLinkIdentity(t *testing.T) {
	store := memstore.New()
	svc := user.NewUserService(store.Users(), "workboard")
	ctx := context.Background()

	existing, err := svc.Register(ctx, &user.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	t.Run("binds by email", func(t *testing.T) {
		linked, err := svc.LinkIdentity(ctx, "https://tenant.auth0.com/|auth0|1", "ADA@example.com", "Ada L")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, linked.ID)
		require.NotNil(t, linked.TokenIdentifier)
		assert.Equal(t, "https://tenant.auth0.com/|auth0|1", *linked.TokenIdentifier)

		again, err := svc.LinkIdentity(ctx, "https://tenant.auth0.com/|auth0|1", "ignored@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, again.ID)
	})

	t.Run("creates a member", func(t *testing.T) {
		created, err := svc.LinkIdentity(ctx, "https://tenant.auth0.com/|auth0|2", "new@example.com", " ")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", created.Name)
		assert.Equal(t, user.RoleMember, created.Role)
		assert.Nil(t, created.PasswordHash)
	})

	t.Run("requires an email", func(t *testing.T) {
		_, err := svc.LinkIdentity(ctx, "https://tenant.auth0.com/|auth0|3", "", "No Mail")
		assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
	})
}

func TestUpdateRole(t *testing.T) {
	store := memstore.New()
	svc := user.NewUserService(store.Users(), "workboard")
	ctx := context.Background()

	admin, _ := store.AddUser(user.User{Name: "Admin", Email: "admin@example.com", Role: user.RoleAdmin})
	member, _ := store.AddUser(user.User{Name: "Member", Email: "member@example.com"})

	_, err := svc.UpdateRole(ctx, nil, member.ID, user.RoleAdmin)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))

	_, err = svc.UpdateRole(ctx, member, member.ID, user.RoleAdmin)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))

	_, err = svc.UpdateRole(ctx, admin, member.ID, user.Role("owner"))
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	_, err = svc.UpdateRole(ctx, admin, uuid.New(), user.RoleAdmin)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))

	promoted, err := svc.UpdateRole(ctx, admin, member.ID, user.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
}

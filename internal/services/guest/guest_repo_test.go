package guest_test

import (
	"context"
	"strings"
	"testing"

	"github.com/curaious/workboard/internal/dbtest"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestRepoGrants(t *testing.T) {
	conn := dbtest.Open(t)
	repo := guest.NewGuestRepo(conn)
	ctx := context.Background()

	olive := dbtest.User(t, conn, "olive")
	max := dbtest.User(t, conn, "max")
	p := dbtest.Project(t, conn, olive)

	invite, err := repo.Create(ctx, &guest.Guest{
		ProjectID:   p.ID,
		Email:       strings.ToUpper(max.Email),
		Permissions: []string{string(guest.CapabilityView), string(guest.CapabilityEdit)},
		Status:      guest.StatusPending,
		InvitedBy:   olive.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, max.Email, invite.Email)

	_, err = repo.Create(ctx, &guest.Guest{ProjectID: p.ID, Email: max.Email, Permissions: []string{}, Status: guest.StatusPending, InvitedBy: olive.ID})
	assert.ErrorIs(t, err, guest.ErrGuestAlreadyExists)

	grants, err := repo.ActiveGrants(ctx, p.ID, max.Email)
	require.NoError(t, err)
	assert.Empty(t, grants, "pending invitations grant nothing")

	_, err = repo.Activate(ctx, invite.ID, max.ID)
	require.NoError(t, err)
	grants, err = repo.ActiveGrants(ctx, p.ID, strings.ToUpper(max.Email))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"view", "edit"}, grants)

	revoked, err := repo.Revoke(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, guest.StatusRevoked, revoked.Status)
	grants, err = repo.ActiveGrants(ctx, p.ID, max.Email)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

package guest

import (
	"time"

	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Capability is a tag granting a guest one kind of action on a project.
type Capability string

const (
	CapabilityView    Capability = "view"
	CapabilityEdit    Capability = "edit"
	CapabilityComment Capability = "comment"
	CapabilityInvite  Capability = "invite"
	CapabilityAdmin   Capability = "admin"
)

func (c Capability) Valid() bool {
	switch c {
	case CapabilityView, CapabilityEdit, CapabilityComment, CapabilityInvite, CapabilityAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

type Guest struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	ProjectID   uuid.UUID      `json:"projectId" db:"project_id"`
	Email       string         `json:"email" db:"email"`
	UserID      *uuid.UUID     `json:"userId,omitempty" db:"user_id"`
	Permissions pq.StringArray `json:"permissions" db:"permissions"`
	Status      Status         `json:"status" db:"status"`
	InvitedBy   uuid.UUID      `json:"invitedBy" db:"invited_by"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// Has reports whether the guest was granted capability c.
func (g *Guest) Has(c Capability) bool {
	for _, p := range g.Permissions {
		if Capability(p) == c {
			return true
		}
	}
	return false
}

type GuestWithUser struct {
	Guest
	User *user.User `json:"user,omitempty"`
}

type InviteRequest struct {
	ProjectID   uuid.UUID    `json:"-"`
	Email       string       `json:"email"`
	Permissions []Capability `json:"permissions"`
}

type UpdatePermissionsRequest struct {
	Permissions []Capability `json:"permissions"`
}

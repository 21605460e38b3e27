package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type SystemRole string

const (
	SystemRoleSuperAdmin SystemRole = "superadmin"
	SystemRoleUser       SystemRole = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    *string    `db:"password_hash" json:"-"`
	Role            Role       `db:"role" json:"role"`
	SystemRole      SystemRole `db:"system_role" json:"systemRole"`
	TokenIdentifier *string    `db:"token_identifier" json:"-"`
	CurrentTeamID   *string    `db:"current_team_id" json:"currentTeamId,omitempty"`
	Avatar          *string    `db:"avatar" json:"avatar,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the team admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsSuperAdmin reports whether the user holds the system wide superadmin role.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.SystemRole == SystemRoleSuperAdmin
}

// DisplayName falls back to the email when no name was given.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// TokenIdentifierFor builds the identifier stored on a user for a token
// issued by issuer for subject.
func TokenIdentifierFor(issuer, subject string) string {
	return issuer + "|" + subject
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

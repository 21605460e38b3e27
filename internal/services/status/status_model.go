package status

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTask    Type = "task"
	TypeProject Type = "project"
)

func (t Type) Valid() bool {
	return t == TypeTask || t == TypeProject
}

// CustomStatus is one workflow status. A nil TeamID makes it a global default.
type CustomStatus struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Type      Type      `json:"type" db:"type"`
	Slug      string    `json:"slug" db:"slug"`
	Label     string    `json:"label" db:"label"`
	Color     string    `json:"color" db:"color"`
	IsDefault bool      `json:"isDefault" db:"is_default"`
	Order     int       `json:"order" db:"order"`
	TeamID    *string   `json:"teamId,omitempty" db:"team_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateStatusRequest struct {
	Type      Type    `json:"type"`
	Slug      string  `json:"slug"`
	Label     string  `json:"label"`
	Color     string  `json:"color"`
	IsDefault bool    `json:"isDefault"`
	Order     int     `json:"order"`
	TeamID    *string `json:"teamId,omitempty"`
}

type UpdateStatusRequest struct {
	Label     *string `json:"label,omitempty"`
	Color     *string `json:"color,omitempty"`
	IsDefault *bool   `json:"isDefault,omitempty"`
	Order     *int    `json:"order,omitempty"`
}

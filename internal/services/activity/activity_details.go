package activity

import (
	"database/sql/driver"
	"fmt"

	json "github.com/bytedance/sonic"
)

// Payload is one variant of the details union. Kind is the discriminator
// written next to the data.
type Payload interface {
	Kind() string
}

type ProjectDetails struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

func (ProjectDetails) Kind() string { return string(EntityProject) }

type TaskDetails struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Status    string `json:"status,omitempty"`
}

func (TaskDetails) Kind() string { return string(EntityTask) }

type SubtaskDetails struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
	Item   string `json:"item,omitempty"`
}

func (SubtaskDetails) Kind() string { return string(EntitySubtask) }

// CommentDetails covers project comments and task comments, the latter
// carrying TaskID.
type CommentDetails struct {
	ProjectID       string `json:"projectId"`
	TaskID          string `json:"taskId,omitempty"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
}

func (CommentDetails) Kind() string { return string(EntityComment) }

type GuestDetails struct {
	ProjectID   string   `json:"projectId"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions,omitempty"`
}

func (GuestDetails) Kind() string { return string(EntityGuest) }

type FileDetails struct {
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	FileSize  int64  `json:"fileSize"`
	ProjectID string `json:"projectId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
}

func (FileDetails) Kind() string { return string(EntityFile) }

type DependencyDetails struct {
	TaskID          string `json:"taskId"`
	DependsOnTaskID string `json:"dependsOnTaskId"`
	Type            string `json:"type"`
}

func (DependencyDetails) Kind() string { return string(EntityDependency) }

type StatusDetails struct {
	Type  string `json:"type"`
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

func (StatusDetails) Kind() string { return string(EntityStatus) }

// CustomDetails carries free-form details supplied through logActivity.
type CustomDetails map[string]any

func (CustomDetails) Kind() string { return "custom" }

// Details wraps a Payload for storage as {"kind": ..., "data": ...}.
type Details struct {
	Payload Payload
}

type envelope struct {
	Kind string  `json:"kind"`
	Data rawData `json:"data"`
}

// rawData defers decoding of the data member until the kind is known.
type rawData []byte

func (r rawData) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *rawData) UnmarshalJSON(b []byte) error {
	*r = append((*r)[:0], b...)
	return nil
}

func (d Details) MarshalJSON() ([]byte, error) {
	if d.Payload == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: d.Payload.Kind(), Data: data})
}

func (d *Details) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		d.Payload = nil
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}

	var p Payload
	switch env.Kind {
	case string(EntityProject):
		p = &ProjectDetails{}
	case string(EntityTask):
		p = &TaskDetails{}
	case string(EntitySubtask):
		p = &SubtaskDetails{}
	case string(EntityComment):
		p = &CommentDetails{}
	case string(EntityGuest):
		p = &GuestDetails{}
	case string(EntityFile):
		p = &FileDetails{}
	case string(EntityStatus):
		p = &StatusDetails{}
	case string(EntityDependency):
		p = &DependencyDetails{}
	case "custom":
		p = &CustomDetails{}
	default:
		return fmt.Errorf("unknown details kind %q", env.Kind)
	}

	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, p); err != nil {
			return fmt.Errorf("failed to decode %s details: %w", env.Kind, err)
		}
	}

	d.Payload = deref(p)
	return nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *ProjectDetails:
		return *v
	case *TaskDetails:
		return *v
	case *SubtaskDetails:
		return *v
	case *CommentDetails:
		return *v
	case *GuestDetails:
		return *v
	case *FileDetails:
		return *v
	case *StatusDetails:
		return *v
	case *DependencyDetails:
		return *v
	case *CustomDetails:
		return *v
	}
	return p
}

// Scan implements the sql.Scanner interface for database/sql
func (d *Details) Scan(value interface{}) error {
	if value == nil {
		d.Payload = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Details", value)
	}

	return d.UnmarshalJSON(bytes)
}

// Value implements the driver.Valuer interface for database/sql
func (d Details) Value() (driver.Value, error) {
	if d.Payload == nil {
		return nil, nil
	}
	return d.MarshalJSON()
}

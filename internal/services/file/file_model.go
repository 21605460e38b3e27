package file

import (
	"time"

	"github.com/google/uuid"
)

// File is the metadata of a stored object attached to a project or task.
type File struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	StorageID  string     `json:"storageId" db:"storage_id"`
	FileName   string     `json:"fileName" db:"file_name"`
	FileType   string     `json:"fileType" db:"file_type"`
	FileSize   int64      `json:"fileSize" db:"file_size"`
	ProjectID  *uuid.UUID `json:"projectId,omitempty" db:"project_id"`
	TaskID     *uuid.UUID `json:"taskId,omitempty" db:"task_id"`
	UploadedBy uuid.UUID  `json:"uploadedBy" db:"uploaded_by"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	DeletedAt  *time.Time `json:"-" db:"deleted_at"`
}

// FileWithURL carries a read URL resolved at read time. URLs are never stored
// and expire after the configured URL lifetime.
type FileWithURL struct {
	File
	URL string `json:"url"`
}

type SaveFileRequest struct {
	StorageID string     `json:"storageId"`
	FileName  string     `json:"fileName"`
	FileType  string     `json:"fileType"`
	FileSize  int64      `json:"fileSize"`
	ProjectID *uuid.UUID `json:"projectId,omitempty"`
	TaskID    *uuid.UUID `json:"taskId,omitempty"`
}

// Package memstore keeps every repository in process memory. It mirrors the
// constraints of the postgres schema (uniqueness, cascades, ordering, outbox
// and tombstones) and backs the service and handler tests.
package memstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/curaious/workboard/internal/services/file"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/status"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

type reservation struct {
	userID    uuid.UUID
	expiresAt time.Time
}

type approval struct {
	projectID *uuid.UUID
	taskID    *uuid.UUID
	status    string
}

// Store holds all tables behind one lock, so multi table writes are atomic.
type Store struct {
	mu sync.Mutex

	users     map[uuid.UUID]*user.User
	projects  map[uuid.UUID]*project.Project
	tasks     map[uuid.UUID]*task.Task
	subtasks  map[uuid.UUID]*task.Subtask
	deps      map[uuid.UUID]*task.Dependency
	guests    map[uuid.UUID]*guest.Guest
	comments  map[uuid.UUID]*comment.Comment
	files     map[uuid.UUID]*file.File
	uploads   map[string]*reservation
	logs      map[uuid.UUID]*activity.Log
	outbox    []*activity.Log
	statuses  map[uuid.UUID]*status.CustomStatus
	approvals map[uuid.UUID]*approval

	taskComments  map[uuid.UUID]*comment.TaskComment
	notifications map[uuid.UUID]*notification.Notification

	// FailOutbox makes every outbox write fail, for exercising best-effort paths.
	FailOutbox bool

	clock time.Time
}

func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*user.User),
		projects:  make(map[uuid.UUID]*project.Project),
		tasks:     make(map[uuid.UUID]*task.Task),
		subtasks:  make(map[uuid.UUID]*task.Subtask),
		deps:      make(map[uuid.UUID]*task.Dependency),
		guests:    make(map[uuid.UUID]*guest.Guest),
		comments:  make(map[uuid.UUID]*comment.Comment),
		files:     make(map[uuid.UUID]*file.File),
		uploads:   make(map[string]*reservation),
		logs:      make(map[uuid.UUID]*activity.Log),
		statuses:  make(map[uuid.UUID]*status.CustomStatus),
		approvals: make(map[uuid.UUID]*approval),

		taskComments:  make(map[uuid.UUID]*comment.TaskComment),
		notifications: make(map[uuid.UUID]*notification.Notification),

		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// AddApproval inserts an approval row, which only feeds the activity counts.
func (s *Store) AddApproval(projectID *uuid.UUID, approvalStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals[uuid.New()] = &approval{projectID: projectID, status: approvalStatus}
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s} }
func (s *Store) Projects() *ProjectRepo           { return &ProjectRepo{s} }
func (s *Store) Tasks() *TaskRepo                 { return &TaskRepo{s} }
func (s *Store) Guests() *GuestRepo               { return &GuestRepo{s} }
func (s *Store) Comments() *CommentRepo           { return &CommentRepo{s} }
func (s *Store) Files() *FileRepo                 { return &FileRepo{s} }
func (s *Store) Activity() *ActivityRepo          { return &ActivityRepo{s} }
func (s *Store) Statuses() *StatusRepo            { return &StatusRepo{s} }
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s} }

// deleteTaskLocked removes a task, its subtasks, child tasks, dependencies,
// comments, approvals and file rows, returning the storage ids of the files.
func (s *Store) deleteTaskLocked(id uuid.UUID) []string {
	var storageIDs []string

	for childID, child := range s.tasks {
		if child.ParentTaskID != nil && *child.ParentTaskID == id {
			storageIDs = append(storageIDs, s.deleteTaskLocked(childID)...)
		}
	}
	for sid, st := range s.subtasks {
		if st.TaskID == id {
			delete(s.subtasks, sid)
		}
	}
	for did, d := range s.deps {
		if d.TaskID == id || d.DependsOnTaskID == id {
			delete(s.deps, did)
		}
	}
	for cid, c := range s.taskComments {
		if c.TaskID == id {
			s.deleteTaskCommentLocked(cid)
		}
	}
	for fid, f := range s.files {
		if f.TaskID != nil && *f.TaskID == id {
			storageIDs = append(storageIDs, f.StorageID)
			delete(s.files, fid)
		}
	}
	for aid, a := range s.approvals {
		if a.taskID != nil && *a.taskID == id {
			delete(s.approvals, aid)
		}
	}
	delete(s.tasks, id)
	return storageIDs
}

func ptrCopy[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func errForeignKey(column string) error {
	return fmt.Errorf("foreign key violation on %s", column)
}

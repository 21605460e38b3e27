package services_test

import (
	"context"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/mailer"
	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/curaious/workboard/internal/services/file"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/curaious/workboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) (*mailer.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return &mailer.Result{Success: true, ID: "msg"}, nil
}

func assemble(t *testing.T) (*services.Services, *memstore.Store, *outbox) {
	t.Helper()

	store := memstore.New()
	objects := storage.NewMemoryStore("http://app.test", time.Minute, time.Hour)
	mail := &outbox{}
	conf := &config.Config{APP_BASE_URL: "http://app.test", TOKEN_ISSUER: "workboard"}

	repos := services.Repositories{
		Users:    store.Users(),
		Projects: store.Projects(),
		Tasks:    store.Tasks(),
		Guests:   store.Guests(),
		Comments: store.Comments(),
		Files:    store.Files(),
		Activity: store.Activity(),
		Statuses: store.Statuses(),

		TaskComments:  store.TaskComments(),
		Notifications: store.Notifications(),
	}
	return services.Assemble(repos, objects, mail, nil, conf), store, mail
}

func TestProjectLifecycle(t *testing.T) {
	svc, store, mail := assemble(t)
	owner, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com", Role: user.RoleAdmin})

	p, err := svc.Project.Create(ctx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, project.StatusActive, p.Status)
	require.NotNil(t, p.OwnerID)
	assert.Equal(t, owner.ID, *p.OwnerID)

	invited, err := svc.Guest.Invite(ctx, &guest.InviteRequest{ProjectID: p.ID, Email: "a@x.com", Permissions: []guest.Capability{guest.CapabilityView}})
	require.NoError(t, err)
	assert.Equal(t, guest.StatusPending, invited.Status)
	require.Len(t, mail.sent, 1)

	_, err = svc.Guest.Invite(ctx, &guest.InviteRequest{ProjectID: p.ID, Email: "A@x.com", Permissions: []guest.Capability{guest.CapabilityEdit}})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeConflict))

	tk, err := svc.Task.Create(ctx, &task.CreateTaskRequest{ProjectID: p.ID, Title: "Design"})
	require.NoError(t, err)

	target, err := svc.File.GenerateUploadURL(ctx)
	require.NoError(t, err)
	uploader, ok := svc.Store.(storage.TicketUploader)
	require.True(t, ok)
	storageID, err := uploader.Upload(context.Background(), path.Base(target.URL), strings.NewReader("price sheet"))
	require.NoError(t, err)

	saved, err := svc.File.SaveFile(ctx, &file.SaveFileRequest{StorageID: storageID, FileName: "sheet.pdf", FileType: "application/pdf", FileSize: 10, TaskID: &tk.ID})
	require.NoError(t, err)

	files, err := svc.File.ListByTask(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.NotEmpty(t, files[0].URL)

	_, err = svc.Comment.Create(ctx, &comment.CreateCommentRequest{ProjectID: p.ID, Content: "Looks good", Files: []string{storageID}})
	require.NoError(t, err)

	require.NoError(t, svc.File.Remove(ctx, saved.ID))
	exists, err := svc.Store.Exists(context.Background(), storageID)
	require.NoError(t, err)
	assert.False(t, exists)

	files, err = svc.File.ListByTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	n, err := svc.Relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Positive(t, n)

	stats, err := svc.Activity.GetStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats)

	require.NoError(t, svc.Project.Delete(ctx, p.ID))
	_, err = svc.Task.GetTask(ctx, tk.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

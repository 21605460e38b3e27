package controllers_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/curaious/workboard/internal/services/user"
	"github.com/curaious/workboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type idOnly struct {
	ID string `json:"id"`
}

func (h *harness) mustCreate(t *testing.T, ctx context.Context, uri, body string) string {
	t.Helper()

	resp := h.do(ctx, fasthttp.MethodPost, uri, body)
	require.Equal(t, fasthttp.StatusOK, resp.Response.StatusCode(), string(resp.Response.Body()))
	id := decode[idOnly](t, resp).Data.ID
	require.NotEmpty(t, id)
	return id
}

func TestSubscribeRequiresSignIn(t *testing.T) {
	h := newHarness(t)
	_, userCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	ctx := h.do(context.Background(), fasthttp.MethodGet, "/api/subscribe", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.NotEqual(t, "text/event-stream", string(ctx.Response.Header.ContentType()))

	ctx = h.do(userCtx, fasthttp.MethodGet, "/api/subscribe", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "text/event-stream", string(ctx.Response.Header.ContentType()))
}

func TestTaskRoutesEnforceEditAccess(t *testing.T) {
	h := newHarness(t)
	_, oliveCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, maxCtx := h.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	projectID := h.mustCreate(t, oliveCtx, "/api/projects", `{"name":"Roadmap","priority":"high","teamId":"T1"}`)
	taskID := h.mustCreate(t, oliveCtx, "/api/projects/"+projectID+"/tasks", `{"title":"Design"}`)

	ctx := h.do(maxCtx, fasthttp.MethodPost, "/api/projects/"+projectID+"/tasks", `{"title":"Sneaky"}`)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(maxCtx, fasthttp.MethodPatch, "/api/tasks/"+taskID, `{"title":"Hijacked"}`)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(maxCtx, fasthttp.MethodDelete, "/api/tasks/"+taskID, "")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(maxCtx, fasthttp.MethodPatch, "/api/projects/"+projectID, `{"name":"Mine"}`)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodPatch, "/api/tasks/"+taskID, `{"status":"in_progress"}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	updated := decode[struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	}](t, ctx).Data
	assert.Equal(t, "Design", updated.Title)
	assert.Equal(t, "in_progress", updated.Status)
}

func TestDependencyRoutes(t *testing.T) {
	h := newHarness(t)
	_, oliveCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	projectID := h.mustCreate(t, oliveCtx, "/api/projects", `{"name":"Roadmap","priority":"high","teamId":"T1"}`)
	design := h.mustCreate(t, oliveCtx, "/api/projects/"+projectID+"/tasks", `{"title":"Design"}`)
	build := h.mustCreate(t, oliveCtx, "/api/projects/"+projectID+"/tasks", `{"title":"Build"}`)

	body := fmt.Sprintf(`{"dependsOnTaskId":%q}`, design)
	depID := h.mustCreate(t, oliveCtx, "/api/tasks/"+build+"/dependencies", body)

	ctx := h.do(oliveCtx, fasthttp.MethodPost, "/api/tasks/"+build+"/dependencies", body)
	assert.Equal(t, fasthttp.StatusConflict, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodPost, "/api/tasks/"+design+"/dependencies", fmt.Sprintf(`{"dependsOnTaskId":%q}`, build))
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode(), "cycle")

	ctx = h.do(oliveCtx, fasthttp.MethodGet, "/api/tasks/"+build+"/dependencies", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	deps := decode[[]struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Task struct {
			Title string `json:"title"`
		} `json:"task"`
	}](t, ctx).Data
	require.Len(t, deps, 1)
	assert.Equal(t, "FS", deps[0].Type)
	assert.Equal(t, "Design", deps[0].Task.Title)

	ctx = h.do(oliveCtx, fasthttp.MethodPatch, "/api/dependencies/"+depID, `{"type":"SS"}`)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodDelete, "/api/dependencies/"+depID, "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodGet, "/api/tasks/"+design+"/dependents", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, decode[[]idOnly](t, ctx).Data)
}

func TestTaskCommentAndNotificationRoutes(t *testing.T) {
	h := newHarness(t)
	_, oliveCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, maxCtx := h.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	projectID := h.mustCreate(t, oliveCtx, "/api/projects", `{"name":"Roadmap","priority":"high","teamId":"T1"}`)
	taskID := h.mustCreate(t, oliveCtx, "/api/projects/"+projectID+"/tasks", `{"title":"Design"}`)

	commentID := h.mustCreate(t, maxCtx, "/api/tasks/"+taskID+"/comments", `{"content":"Ready for review"}`)

	ctx := h.do(oliveCtx, fasthttp.MethodPatch, "/api/task-comments/"+commentID, `{"content":"edited"}`)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodGet, "/api/notifications/unread-count", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, ctx).Data.Count)

	ctx = h.do(oliveCtx, fasthttp.MethodGet, "/api/notifications?unread=true", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	notices := decode[[]idOnly](t, ctx).Data
	require.Len(t, notices, 1)

	ctx = h.do(maxCtx, fasthttp.MethodPost, "/api/notifications/"+notices[0].ID+"/read", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodPost, "/api/notifications/read-all", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, 1, decode[struct {
		Marked int `json:"marked"`
	}](t, ctx).Data.Marked)

	ctx = h.do(oliveCtx, fasthttp.MethodGet, "/api/notifications?limit=abc", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())

	ctx = h.do(context.Background(), fasthttp.MethodGet, "/api/notifications", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = h.do(maxCtx, fasthttp.MethodDelete, "/api/task-comments/"+commentID, "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodGet, "/api/tasks/"+taskID+"/comments", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, decode[[]idOnly](t, ctx).Data)
}

func TestSaveFileRouteRejectsAnotherUsersUpload(t *testing.T) {
	h := newHarness(t)
	_, oliveCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, maxCtx := h.store.AddUser(user.User{Name: "Max", Email: "max@example.com", Role: user.RoleAdmin})

	projectID := h.mustCreate(t, oliveCtx, "/api/projects", `{"name":"Roadmap","priority":"high","teamId":"T1"}`)

	ctx := h.do(oliveCtx, fasthttp.MethodPost, "/api/files/upload-url", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	target := decode[storage.UploadTarget](t, ctx).Data

	ctx = h.do(context.Background(), fasthttp.MethodPut, target.URL, "olive's sheet")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	body := fmt.Sprintf(`{"storageId":%q,"fileName":"sheet.pdf","projectId":%q}`, target.StorageID, projectID)
	ctx = h.do(maxCtx, fasthttp.MethodPost, "/api/files", body)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(oliveCtx, fasthttp.MethodPost, "/api/files", body)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	exists, err := h.svc.Store.Exists(context.Background(), target.StorageID)
	require.NoError(t, err)
	assert.True(t, exists)
}

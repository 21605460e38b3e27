package controllers_test

import (
	"context"
	"testing"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/curaious/workboard/internal/api/controllers"
	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/mailer"
	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/pubsub"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/curaious/workboard/internal/storage"
	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, mailer.Message) (*mailer.Result, error) {
	return &mailer.Result{Success: true}, nil
}

type envelope[T any] struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Status  int    `json:"status"`
}

type harness struct {
	handler fasthttp.RequestHandler
	svc     *services.Services
	store   *memstore.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memstore.New()
	objects := storage.NewMemoryStore("http://app.test", time.Minute, time.Hour)
	conf := &config.Config{APP_BASE_URL: "http://app.test", TOKEN_ISSUER: "workboard"}
	svc := services.Assemble(services.Repositories{
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
	}, objects, nopMailer{}, nil, conf)

	r := router.New()
	controllers.RegisterHealthRoutes(r)
	controllers.RegisterProjectRoutes(r, svc)
	controllers.RegisterTaskRoutes(r, svc)
	controllers.RegisterCommentRoutes(r, svc)
	controllers.RegisterTaskCommentRoutes(r, svc)
	controllers.RegisterNotificationRoutes(r, svc)
	controllers.RegisterFileRoutes(r, svc)
	controllers.RegisterStorageRoutes(r, svc)
	controllers.RegisterSubscribeRoutes(r, svc, pubsub.NewPubSub("postgresql://localhost/unused"))

	return &harness{handler: r.Handler, svc: svc, store: store}
}

func (h *harness) do(stdCtx context.Context, method, uri, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	if stdCtx != nil {
		ctx.SetUserValue(controllers.RequestContextKey, stdCtx)
	}
	h.handler(ctx)
	return ctx
}

func decode[T any](t *testing.T, ctx *fasthttp.RequestCtx) envelope[T] {
	t.Helper()

	var env envelope[T]
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	return env
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	ctx := h.do(nil, fasthttp.MethodGet, "/api/health", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestCreateProjectRoute(t *testing.T) {
	h := newHarness(t)
	_, userCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	ctx := h.do(context.Background(), fasthttp.MethodPost, "/api/projects", `{"name":"Roadmap","priority":"high","teamId":"T1"}`)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.True(t, decode[any](t, ctx).Error)

	ctx = h.do(userCtx, fasthttp.MethodPost, "/api/projects", `{"name":"Roadmap","priority":"urgent","teamId":"T1"}`)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())

	ctx = h.do(userCtx, fasthttp.MethodPost, "/api/projects", `not json`)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())

	ctx = h.do(userCtx, fasthttp.MethodPost, "/api/projects", `{"name":"Roadmap","priority":"high","teamId":"T1"}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	created := decode[struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}](t, ctx).Data
	assert.Equal(t, "Roadmap", created.Name)
	assert.Equal(t, "active", created.Status)

	ctx = h.do(userCtx, fasthttp.MethodGet, "/api/projects/"+created.ID, "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = h.do(userCtx, fasthttp.MethodGet, "/api/projects/not-a-uuid", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestStorageRoutes(t *testing.T) {
	h := newHarness(t)
	_, userCtx := h.store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	ctx := h.do(userCtx, fasthttp.MethodPost, "/api/files/upload-url", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	target := decode[storage.UploadTarget](t, ctx).Data
	require.NotEmpty(t, target.URL)

	ctx = h.do(context.Background(), fasthttp.MethodPut, target.URL, "hello world")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	uploaded := decode[struct {
		StorageID string `json:"storageId"`
	}](t, ctx).Data
	assert.Equal(t, target.StorageID, uploaded.StorageID)

	// tickets are single use
	ctx = h.do(context.Background(), fasthttp.MethodPut, target.URL, "again")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	readURL, err := h.svc.Store.URL(context.Background(), uploaded.StorageID)
	require.NoError(t, err)

	ctx = h.do(context.Background(), fasthttp.MethodGet, readURL, "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "hello world", string(ctx.Response.Body()))

	ctx = h.do(context.Background(), fasthttp.MethodGet, readURL+"0", "")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = h.do(context.Background(), fasthttp.MethodGet, "/api/storage/objects/"+uploaded.StorageID, "")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}

package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	json "github.com/bytedance/sonic"
	"github.com/curaious/workboard/internal/api/response"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// RequestContextKey is the user value the middleware stores the request's
// context.Context under, carrying the trace parent and the caller identity.
const RequestContextKey = "requestCtx"

// requestContext returns the context prepared by the middleware, or Background
// for handlers reached without it.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if stdCtx, ok := ctx.UserValue(RequestContextKey).(context.Context); ok && stdCtx != nil {
		return stdCtx
	}
	return context.Background()
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

// decodeBody parses the body into target, answering 400 on failure.
func decodeBody(ctx *fasthttp.RequestCtx, stdCtx context.Context, target any) bool {
	if err := parseBody(ctx, target); err != nil {
		writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
		return false
	}
	return true
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (uuid.UUID, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(val)
}

// uuidParam reads a uuid path parameter, answering 400 when it is malformed.
func uuidParam(ctx *fasthttp.RequestCtx, stdCtx context.Context, key string) (uuid.UUID, bool) {
	id, err := pathParamUUID(ctx, key)
	if err != nil {
		writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
		return uuid.Nil, false
	}
	return id, true
}

func requireStringQuery(ctx *fasthttp.RequestCtx, key string) (string, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return "", fmt.Errorf("%s parameter is required", key)
	}

	return string(raw), nil
}

func optionalStringQuery(ctx *fasthttp.RequestCtx, key string) *string {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

// intQuery returns the integer query parameter key, or 0 when it is absent.
func intQuery(ctx *fasthttp.RequestCtx, key string) (int, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return 0, nil
	}

	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// isSameOrigin reports whether target points at the same scheme and host as base.
func isSameOrigin(target, base string) bool {
	t, err := url.Parse(target)
	if err != nil {
		return false
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return t.Scheme == b.Scheme && t.Host == b.Host
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/curaious/workboard/internal/api/controllers"
	"github.com/curaious/workboard/internal/identity"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracePropagator = propagation.TraceContext{}
	tracer          = otel.Tracer("API")
)

func (s *Server) initRoutes() fasthttp.RequestHandler {
	r := router.New()

	controllers.RegisterHealthRoutes(r)
	controllers.RegisterAuthRoutes(r, s.services, s.auth, s.conf)
	controllers.RegisterProjectRoutes(r, s.services)
	controllers.RegisterTaskRoutes(r, s.services)
	controllers.RegisterGuestRoutes(r, s.services)
	controllers.RegisterCommentRoutes(r, s.services)
	controllers.RegisterTaskCommentRoutes(r, s.services)
	controllers.RegisterNotificationRoutes(r, s.services)
	controllers.RegisterFileRoutes(r, s.services)
	controllers.RegisterActivityRoutes(r, s.services)
	controllers.RegisterStatusRoutes(r, s.services)
	controllers.RegisterStorageRoutes(r, s.services)
	if s.pubsub != nil {
		controllers.RegisterSubscribeRoutes(r, s.services, s.pubsub)
	}
	if s.conf.DIAGNOSTICS_ENABLED {
		controllers.RegisterDiagnosticsRoutes(r, s.services, s.conf)
	}

	return s.withMiddlewares(r.Handler)
}

func (s *Server) withMiddlewares(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		s.applyCORS(ctx)
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		start := time.Now()
		method := string(ctx.Method())
		path := string(ctx.Path())

		h := http.Header{}
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			h[string(k)] = []string{string(v)}
		})
		stdCtx := tracePropagator.Extract(context.Background(), propagation.HeaderCarrier(h))

		stdCtx, span := tracer.Start(stdCtx, method+" "+path, trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
		)

		// Identity is optional here; services decide whether they need one.
		// An invalid token is treated the same as no token.
		if raw := accessToken(ctx); raw != "" {
			token, err := s.auth.VerifyAccessToken(stdCtx, raw)
			if err != nil {
				slog.DebugContext(stdCtx, "ignoring invalid access token", slog.Any("error", err))
			} else {
				stdCtx = identity.WithToken(stdCtx, token)
			}
		}

		ctx.SetUserValue(controllers.RequestContextKey, stdCtx)

		next(ctx)

		status := ctx.Response.StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= fasthttp.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		// streaming handlers keep running after next returns
		span.End()

		slog.InfoContext(stdCtx, "Finished processing",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func accessToken(ctx *fasthttp.RequestCtx) string {
	if header := string(ctx.Request.Header.Peek("Authorization")); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return string(ctx.Request.Header.Cookie("access_token"))
}

func (s *Server) applyCORS(ctx *fasthttp.RequestCtx) {
	headers := &ctx.Response.Header
	headers.Set("Access-Control-Allow-Origin", string(ctx.Request.Header.Peek("Origin")))
	headers.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS,PATCH")
	headers.Set("Access-Control-Allow-Headers", s.conf.ALLOWED_HEADERS)
	headers.Set("Access-Control-Allow-Credentials", "true")
}

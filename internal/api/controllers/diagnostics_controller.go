package controllers

import (
	"errors"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// ConfigReport says which settings are present. It never carries a secret value.
type ConfigReport struct {
	Environment     string `json:"environment"`
	StorageDriver   string `json:"storageDriver"`
	JWTSecretSet    bool   `json:"jwtSecretSet"`
	OIDCConfigured  bool   `json:"oidcConfigured"`
	StateSecretSet  bool   `json:"stateSecretSet"`
	EmailConfigured bool   `json:"emailConfigured"`
	RedisConfigured bool   `json:"redisConfigured"`
	SigningSecret   bool   `json:"storageSigningSecretSet"`
	S3Configured    bool   `json:"s3Configured"`
	ClickHouseSet   bool   `json:"clickhouseConfigured"`
	TracingEndpoint bool   `json:"tracingEndpointSet"`
}

func newConfigReport(conf *config.Config) *ConfigReport {
	return &ConfigReport{
		Environment:     conf.APP_ENV,
		StorageDriver:   conf.STORAGE_DRIVER,
		JWTSecretSet:    conf.JWT_SECRET != "",
		OIDCConfigured:  conf.AUTH0_DOMAIN != "" && conf.AUTH0_CLIENT_ID != "" && conf.AUTH0_CLIENT_SECRET != "",
		StateSecretSet:  conf.STATE_SECRET != "",
		EmailConfigured: conf.RESEND_API_KEY != "",
		RedisConfigured: conf.REDIS_ADDR != "",
		SigningSecret:   conf.STORAGE_SIGNING_SECRET != "",
		S3Configured:    conf.S3_ENDPOINT != "" && conf.S3_ACCESS_KEY != "" && conf.S3_SECRET_KEY != "",
		ClickHouseSet:   conf.CLICKHOUSE_HOST != "",
		TracingEndpoint: conf.OTEL_EXPORTER_OTLP_ENDPOINT != "",
	}
}

// RegisterDiagnosticsRoutes exposes a configuration report to superadmins.
// Everyone else gets a 404 so the route does not advertise itself.
func RegisterDiagnosticsRoutes(r *router.Router, svc *services.Services, conf *config.Config) {
	r.GET("/api/diagnostics/config", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		u, err := svc.Identity.Optional(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to resolve identity", err)
			return
		}
		if u == nil || !u.IsSuperAdmin() {
			writeError(ctx, stdCtx, "Not found", perrors.NewErrNotFound("Not found", errors.New("diagnostics unavailable")))
			return
		}

		writeOK(ctx, stdCtx, "Configuration report", newConfigReport(conf))
	})
}

func RegisterHealthRoutes(r *router.Router) {
	r.GET("/api/health", func(ctx *fasthttp.RequestCtx) {
		writeOK(ctx, requestContext(ctx), "ok", map[string]string{"status": "ok"})
	})
}

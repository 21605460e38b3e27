package controllers

import (
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterActivityRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/activity/stats", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		stats, err := svc.Activity.GetStats(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get activity stats", err)
			return
		}

		writeOK(ctx, stdCtx, "Activity stats retrieved successfully", stats)
	})

	r.GET("/api/activity/logs", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		limit, err := intQuery(ctx, "limit")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid limit", perrors.NewErrInvalidRequest("Invalid limit", err))
			return
		}

		logs, err := svc.Activity.GetLogs(stdCtx, limit)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get activity logs", err)
			return
		}

		writeOK(ctx, stdCtx, "Activity logs retrieved successfully", logs)
	})

	r.GET("/api/activity", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		logs, err := svc.Activity.List(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list activity", err)
			return
		}

		writeOK(ctx, stdCtx, "Activity retrieved successfully", logs)
	})

	r.POST("/api/activity", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var body activity.LogActivityRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		l, err := svc.Activity.LogActivity(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to log activity", err)
			return
		}

		writeOK(ctx, stdCtx, "Activity logged successfully", l)
	})
}

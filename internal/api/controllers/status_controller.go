package controllers

import (
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/status"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterStatusRoutes(r *router.Router, svc *services.Services) {
	// List statuses of a type, global ones plus those of teamId
	r.GET("/api/statuses", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		t, err := requireStringQuery(ctx, "type")
		if err != nil {
			writeError(ctx, stdCtx, "Status type is required", perrors.NewErrInvalidRequest("Status type is required", err))
			return
		}

		statuses, err := svc.Status.List(stdCtx, status.Type(t), optionalStringQuery(ctx, "teamId"))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list statuses", err)
			return
		}

		writeOK(ctx, stdCtx, "Statuses retrieved successfully", statuses)
	})

	r.POST("/api/statuses", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var body status.CreateStatusRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		cs, err := svc.Status.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create status", err)
			return
		}

		writeOK(ctx, stdCtx, "Status created successfully", cs)
	})

	r.PATCH("/api/statuses/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body status.UpdateStatusRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		cs, err := svc.Status.Update(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update status", err)
			return
		}

		writeOK(ctx, stdCtx, "Status updated successfully", cs)
	})

	r.DELETE("/api/statuses/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Status.Delete(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete status", err)
			return
		}

		writeOK(ctx, stdCtx, "Status deleted successfully", nil)
	})
}

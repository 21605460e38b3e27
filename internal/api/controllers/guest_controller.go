package controllers

import (
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterGuestRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/projects/{id}/guests", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		guests, err := svc.Guest.List(stdCtx, projectID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list guests", err)
			return
		}

		writeOK(ctx, stdCtx, "Guests retrieved successfully", guests)
	})

	// Invite a guest by email, the invitation mail is sent best effort
	r.POST("/api/projects/{id}/guests", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body guest.InviteRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}
		body.ProjectID = projectID

		g, err := svc.Guest.Invite(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to invite guest", err)
			return
		}

		writeOK(ctx, stdCtx, "Guest invited successfully", g)
	})

	r.PUT("/api/guests/{id}/permissions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body guest.UpdatePermissionsRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		g, err := svc.Guest.UpdatePermissions(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update guest permissions", err)
			return
		}

		writeOK(ctx, stdCtx, "Guest permissions updated successfully", g)
	})

	r.DELETE("/api/guests/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Guest.Remove(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to remove guest", err)
			return
		}

		writeOK(ctx, stdCtx, "Guest removed successfully", nil)
	})

	r.POST("/api/guests/{id}/revoke", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		g, err := svc.Guest.Revoke(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to revoke guest", err)
			return
		}

		writeOK(ctx, stdCtx, "Guest revoked successfully", g)
	})

	r.POST("/api/guests/{id}/accept", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		g, err := svc.Guest.Accept(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to accept invitation", err)
			return
		}

		writeOK(ctx, stdCtx, "Invitation accepted successfully", g)
	})
}

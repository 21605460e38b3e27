package controllers

import (
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterProjectRoutes(r *router.Router, svc *services.Services) {
	// List projects, one page at a time
	r.GET("/api/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		limit, err := intQuery(ctx, "limit")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid limit", perrors.NewErrInvalidRequest("Invalid limit", err))
			return
		}

		req := &project.ListProjectsRequest{
			TeamID: string(ctx.QueryArgs().Peek("teamId")),
			Cursor: string(ctx.QueryArgs().Peek("cursor")),
			Limit:  limit,
		}

		page, err := svc.Project.List(stdCtx, req)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list projects", err)
			return
		}

		writeOK(ctx, stdCtx, "Projects retrieved successfully", page)
	})

	// Create project
	r.POST("/api/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var body project.CreateProjectRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		created, err := svc.Project.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project created successfully", created)
	})

	// Get project by ID
	r.GET("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		p, err := svc.Project.GetByID(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project retrieved successfully", p)
	})

	// Update project, only the supplied fields change
	r.PATCH("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body project.UpdateProjectRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		updated, err := svc.Project.Update(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project updated successfully", updated)
	})

	// Delete project with its tasks, comments, guests and files
	r.DELETE("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Project.Delete(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project deleted successfully", nil)
	})

	r.GET("/api/projects/{id}/stats", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		stats, err := svc.Project.Stats(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get project stats", err)
			return
		}

		writeOK(ctx, stdCtx, "Project stats retrieved successfully", stats)
	})
}

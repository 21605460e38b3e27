package controllers

import (
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterCommentRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/projects/{id}/comments", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		comments, err := svc.Comment.List(stdCtx, projectID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list comments", err)
			return
		}

		writeOK(ctx, stdCtx, "Comments retrieved successfully", comments)
	})

	r.POST("/api/projects/{id}/comments", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body comment.CreateCommentRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}
		body.ProjectID = projectID

		c, err := svc.Comment.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment created successfully", c)
	})

	r.PATCH("/api/comments/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body comment.UpdateCommentRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		c, err := svc.Comment.Update(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment updated successfully", c)
	})

	// Replies to a deleted comment stay, detached from their parent
	r.DELETE("/api/comments/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Comment.Delete(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment deleted successfully", nil)
	})
}

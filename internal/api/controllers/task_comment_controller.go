package controllers

import (
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterTaskCommentRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/tasks/{id}/comments", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		comments, err := svc.TaskComment.List(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list comments", err)
			return
		}

		writeOK(ctx, stdCtx, "Comments retrieved successfully", comments)
	})

	r.POST("/api/tasks/{id}/comments", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body comment.CreateTaskCommentRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}
		body.TaskID = taskID

		c, err := svc.TaskComment.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment created successfully", c)
	})

	r.PATCH("/api/task-comments/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body comment.UpdateCommentRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		c, err := svc.TaskComment.Update(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment updated successfully", c)
	})

	r.DELETE("/api/task-comments/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.TaskComment.Delete(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment deleted successfully", nil)
	})
}

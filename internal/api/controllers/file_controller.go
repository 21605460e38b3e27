package controllers

import (
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/file"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterFileRoutes(r *router.Router, svc *services.Services) {
	r.POST("/api/files/upload-url", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		target, err := svc.File.GenerateUploadURL(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to generate upload url", err)
			return
		}

		writeOK(ctx, stdCtx, "Upload url generated successfully", target)
	})

	// Record metadata for an object the client already uploaded
	r.POST("/api/files", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var body file.SaveFileRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		f, err := svc.File.SaveFile(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to save file", err)
			return
		}

		writeOK(ctx, stdCtx, "File saved successfully", f)
	})

	r.GET("/api/tasks/{id}/files", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		files, err := svc.File.ListByTask(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list files", err)
			return
		}

		writeOK(ctx, stdCtx, "Files retrieved successfully", files)
	})

	r.GET("/api/projects/{id}/files", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		files, err := svc.File.ListByProject(stdCtx, projectID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list files", err)
			return
		}

		writeOK(ctx, stdCtx, "Files retrieved successfully", files)
	})

	r.DELETE("/api/files/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.File.Remove(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to remove file", err)
			return
		}

		writeOK(ctx, stdCtx, "File removed successfully", nil)
	})
}

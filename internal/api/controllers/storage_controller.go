package controllers

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/storage"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// RegisterStorageRoutes serves uploads and signed reads for stores that route
// object bytes through this service. Stores that hand out direct URLs, like S3,
// answer 404 here.
func RegisterStorageRoutes(r *router.Router, svc *services.Services) {
	r.PUT("/api/storage/upload/{ticket}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		uploader, ok := svc.Store.(storage.TicketUploader)
		if !ok {
			writeError(ctx, stdCtx, "Uploads are not served by this store", perrors.NewErrNotFound("Uploads are not served by this store", errors.New("store does not accept tickets")))
			return
		}

		ticket, err := pathParam(ctx, "ticket")
		if err != nil {
			writeError(ctx, stdCtx, "Ticket is required", perrors.NewErrInvalidRequest("Ticket is required", err))
			return
		}

		storageID, err := uploader.Upload(stdCtx, ticket, bytes.NewReader(ctx.PostBody()))
		if err != nil {
			if errors.Is(err, storage.ErrTicketNotFound) {
				writeError(ctx, stdCtx, "Upload ticket is invalid or expired", perrors.NewErrForbidden("Upload ticket is invalid or expired", err))
				return
			}
			writeError(ctx, stdCtx, "Failed to store upload", perrors.NewErrExternalService("Failed to store upload", err))
			return
		}

		writeOK(ctx, stdCtx, "Upload stored successfully", map[string]string{"storageId": storageID})
	})

	r.GET("/api/storage/objects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		reader, ok := svc.Store.(storage.ObjectReader)
		if !ok {
			writeError(ctx, stdCtx, "Reads are not served by this store", perrors.NewErrNotFound("Reads are not served by this store", errors.New("store does not serve reads")))
			return
		}

		storageID, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Object ID is required", perrors.NewErrInvalidRequest("Object ID is required", err))
			return
		}

		expires, err := strconv.ParseInt(string(ctx.QueryArgs().Peek("expires")), 10, 64)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid or expired url", perrors.NewErrForbidden("Invalid or expired url", storage.ErrInvalidURL))
			return
		}

		rc, err := reader.Open(stdCtx, storageID, expires, string(ctx.QueryArgs().Peek("signature")))
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrInvalidURL):
				writeError(ctx, stdCtx, "Invalid or expired url", perrors.NewErrForbidden("Invalid or expired url", err))
			case errors.Is(err, storage.ErrObjectNotFound):
				writeError(ctx, stdCtx, "Object not found", perrors.NewErrNotFound("Object not found", err))
			default:
				writeError(ctx, stdCtx, "Failed to read object", perrors.NewErrExternalService("Failed to read object", err))
			}
			return
		}

		ctx.SetContentType("application/octet-stream")
		ctx.Response.Header.Set("Cache-Control", "private, max-age=60")
		// fasthttp closes rc once the body is sent
		ctx.SetBodyStream(rc, -1)
	})
}

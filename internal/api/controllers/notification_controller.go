package controllers

import (
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// RegisterNotificationRoutes serves the caller's own notifications.
func RegisterNotificationRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/notifications", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		limit, err := intQuery(ctx, "limit")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid limit", perrors.NewErrInvalidRequest("Invalid limit", err))
			return
		}
		unread := optionalStringQuery(ctx, "unread")

		notifications, err := svc.Notification.List(stdCtx, &notification.ListRequest{
			UnreadOnly: unread != nil && *unread == "true",
			Limit:      limit,
		})
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list notifications", err)
			return
		}

		writeOK(ctx, stdCtx, "Notifications retrieved successfully", notifications)
	})

	r.GET("/api/notifications/unread-count", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		count, err := svc.Notification.UnreadCount(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to count notifications", err)
			return
		}

		writeOK(ctx, stdCtx, "Unread count retrieved successfully", count)
	})

	r.POST("/api/notifications/read-all", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		result, err := svc.Notification.MarkAllAsRead(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to mark notifications read", err)
			return
		}

		writeOK(ctx, stdCtx, "Notifications marked read", result)
	})

	r.POST("/api/notifications/{id}/read", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		n, err := svc.Notification.MarkAsRead(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to mark notification read", err)
			return
		}

		writeOK(ctx, stdCtx, "Notification marked read", n)
	})

	r.DELETE("/api/notifications", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		days, err := intQuery(ctx, "olderThanDays")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid olderThanDays", perrors.NewErrInvalidRequest("Invalid olderThanDays", err))
			return
		}

		result, err := svc.Notification.DeleteOld(stdCtx, days)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to delete notifications", err)
			return
		}

		writeOK(ctx, stdCtx, "Old notifications deleted", result)
	})
}

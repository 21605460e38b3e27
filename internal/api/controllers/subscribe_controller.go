package controllers

import (
	"bufio"
	"fmt"
	"log/slog"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/curaious/workboard/internal/pubsub"
	"github.com/curaious/workboard/internal/services"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const (
	subscriberBuffer  = 64
	keepAliveInterval = 25 * time.Second
)

// RegisterSubscribeRoutes streams entity change events as server sent events
// to signed in users. Activity log changes only reach admins. Slow consumers
// lose events rather than blocking the listener, and a RELOAD event tells
// them to refetch.
func RegisterSubscribeRoutes(r *router.Router, svc *services.Services, ps *pubsub.PubSub) {
	r.GET("/api/subscribe", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		actor, err := svc.Identity.Current(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Sign in to subscribe", err)
			return
		}
		privileged := actor.IsAdmin() || actor.IsSuperAdmin()

		events := make(chan pubsub.ChangeEvent, subscriberBuffer)
		unsubscribe := ps.Subscribe(func(ev pubsub.ChangeEvent) {
			if !ev.VisibleTo(privileged) {
				return
			}
			select {
			case events <- ev:
			default:
				slog.WarnContext(stdCtx, "dropping change event for slow subscriber", slog.String("table", ev.Table))
			}
		})

		ctx.Response.Header.Set("Content-Type", "text/event-stream")
		ctx.Response.Header.Set("Cache-Control", "no-cache")
		ctx.Response.Header.Set("Connection", "keep-alive")

		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()

			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			_, _ = fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev := <-events:
					buf, err := json.Marshal(ev)
					if err != nil {
						continue
					}
					_, _ = fmt.Fprintf(w, "event: %s\n", ev.Operation)
					_, _ = fmt.Fprintf(w, "data: %s\n\n", buf)
				case <-ticker.C:
					_, _ = fmt.Fprint(w, ": ping\n\n")
				}
				// a failed flush means the client went away
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
	})
}

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/curaious/workboard/internal/api/authenticator"
	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/pubsub"
	"github.com/curaious/workboard/internal/services"
	"github.com/valyala/fasthttp"
)

// Server is the REST server in front of *services.Services
type Server struct {
	srv      *fasthttp.Server
	addr     string
	conf     *config.Config
	services *services.Services
	pubsub   *pubsub.PubSub
	auth     *authenticator.Authenticator
}

// New creates a new server. Migrations and service wiring happen before this.
func New(conf *config.Config, svc *services.Services, ps *pubsub.PubSub, auth *authenticator.Authenticator) *Server {
	s := &Server{
		srv: &fasthttp.Server{
			Name:               "workboard",
			ReadTimeout:        60 * time.Second,
			MaxRequestBodySize: 64 << 20,
		},
		addr:     fmt.Sprintf("0.0.0.0:%s", conf.PORT),
		conf:     conf,
		services: svc,
		pubsub:   ps,
		auth:     auth,
	}

	s.srv.Handler = s.initRoutes()

	return s
}

// Start the rest server and block until interrupted
func (s *Server) Start() {
	slog.Info("Starting REST server...", slog.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}

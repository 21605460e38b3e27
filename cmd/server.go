package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/curaious/workboard/internal/api"
	"github.com/curaious/workboard/internal/api/authenticator"
	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/db"
	"github.com/curaious/workboard/internal/migrations"
	"github.com/curaious/workboard/internal/pubsub"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/telemetry"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the REST server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		m, err := migrations.NewMigrator(conf)
		if err != nil {
			slog.Error("Unable to create migrator", slog.Any("error", err))
			os.Exit(1)
		}
		if n, err := m.Up(ctx, 0); err != nil {
			slog.Error("Unable to run migrations", slog.Any("error", err))
			os.Exit(1)
		} else if n > 0 {
			slog.Info("Applied migrations", slog.Int("count", n))
		}

		svc, err := services.NewServices(ctx, conf)
		if err != nil {
			slog.Error("Unable to create services", slog.Any("error", err))
			os.Exit(1)
		}

		auth, err := authenticator.New(conf)
		if err != nil {
			slog.Error("Unable to create authenticator", slog.Any("error", err))
			os.Exit(1)
		}

		ps := pubsub.NewPubSub(db.DSN(conf))
		if err := ps.Start(); err != nil {
			slog.Warn("Change notifications unavailable", slog.Any("error", err))
			ps = nil
		} else {
			defer ps.Stop()
		}

		go svc.Relay.Run(ctx, conf.OUTBOX_INTERVAL)
		go svc.File.RunReconciler(ctx, conf.RECONCILE_INTERVAL)

		api.New(conf, svc, ps, auth).Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

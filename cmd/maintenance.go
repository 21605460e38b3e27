package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/spf13/cobra"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "One-off maintenance jobs",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(cmd.Help())
	},
}

var reconcileFilesCmd = &cobra.Command{
	Use:   "reconcile-files",
	Short: "Delete stored objects of removed files and abandoned uploads",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		svc, err := services.NewServices(ctx, config.ReadConfig())
		if err != nil {
			fmt.Println("Unable to create services", err)
			os.Exit(1)
		}

		n, err := svc.File.Reconcile(ctx)
		if err != nil {
			fmt.Println("Unable to reconcile files", err)
			os.Exit(1)
		}

		fmt.Printf("Purged %d files\n", n)
	},
}

var flushOutboxCmd = &cobra.Command{
	Use:   "flush-outbox",
	Short: "Publish pending activity log entries",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		svc, err := services.NewServices(ctx, config.ReadConfig())
		if err != nil {
			fmt.Println("Unable to create services", err)
			os.Exit(1)
		}

		n, err := svc.Relay.Flush(ctx)
		if err != nil {
			fmt.Println("Unable to flush outbox", err)
			os.Exit(1)
		}

		fmt.Printf("Published %d entries\n", n)
	},
}

var purgeNotificationsCmd = &cobra.Command{
	Use:   "purge-notifications",
	Short: "Delete notifications older than the retention period for every user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			fmt.Println("--days must be positive")
			os.Exit(1)
		}

		svc, err := services.NewServices(ctx, config.ReadConfig())
		if err != nil {
			fmt.Println("Unable to create services", err)
			os.Exit(1)
		}

		n, err := svc.Notification.Purge(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			fmt.Println("Unable to purge notifications", err)
			os.Exit(1)
		}

		fmt.Printf("Deleted %d notifications\n", n)
	},
}

func init() {
	purgeNotificationsCmd.Flags().Int("days", notification.DefaultRetentionDays, "Delete notifications older than this many days")

	maintenanceCmd.AddCommand(reconcileFilesCmd)
	maintenanceCmd.AddCommand(flushOutboxCmd)
	maintenanceCmd.AddCommand(purgeNotificationsCmd)

	rootCmd.AddCommand(maintenanceCmd)
}

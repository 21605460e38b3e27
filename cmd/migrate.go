package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/migrations"
	"github.com/spf13/cobra"
)

const migrationsDir = "./internal/migrations"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run Migrations",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(cmd.Help())
	},
}

func newMigrator() *migrations.Migrator {
	migrator, err := migrations.NewMigrator(config.ReadConfig())
	if err != nil {
		fmt.Println("Unable to initialize migrator", err)
		os.Exit(1)
	}
	return migrator
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display status of each migration",
	Run: func(cmd *cobra.Command, args []string) {
		for _, st := range newMigrator().Status() {
			applied := "pending"
			if st.AppliedAt != nil {
				applied = st.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%s  %-32s %s\n", st.Version, st.Name, applied)
		}
	},
}

var migrateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new empty migration file",
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")

		path, err := migrations.Create(migrationsDir, name, time.Now())
		if err != nil {
			fmt.Println("Unable to create new migration file", err)
			os.Exit(1)
		}

		fmt.Println("Created", path)
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run up migrations",
	Long:  "Apply every pending migration, or only the next N with --step.",
	Run: func(cmd *cobra.Command, args []string) {
		step, _ := cmd.Flags().GetInt("step")

		n, err := newMigrator().Up(context.Background(), step)
		if err != nil {
			fmt.Println("Unable to run `up` migrations", err)
			os.Exit(1)
		}

		fmt.Printf("Applied %d migrations\n", n)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Run down migrations",
	Long:  "Revert every applied migration, newest first, or only the last N with --step.",
	Run: func(cmd *cobra.Command, args []string) {
		step, _ := cmd.Flags().GetInt("step")

		n, err := newMigrator().Down(context.Background(), step)
		if err != nil {
			fmt.Println("Unable to run `down` migrations", err)
			os.Exit(1)
		}

		fmt.Printf("Reverted %d migrations\n", n)
	},
}

func init() {
	migrateCreateCmd.Flags().StringP("name", "n", "", "Name for the migration, in snake_case")
	migrateCmd.AddCommand(migrateCreateCmd)

	migrateUpCmd.Flags().IntP("step", "s", 0, "Number of migrations to execute")
	migrateCmd.AddCommand(migrateUpCmd)

	migrateDownCmd.Flags().IntP("step", "s", 0, "Number of migrations to execute")
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.AddCommand(migrateStatusCmd)

	rootCmd.AddCommand(migrateCmd)
}

package cmd

import (
	"log"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "workboard",
	Short: "Project and task management server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := godotenv.Overload()
		if err != nil {
			log.Println("Error loading .env file, skipping")
		}

		logger.Setup(config.GetEnvOrDefault("APP_ENV", "development"))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}

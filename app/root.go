// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botforge",
	Short: "BotForge is a multi-tenant chatbot-building platform",
	Long: `BotForge is a multi-tenant platform for building knowledge-backed
chatbots, with role-based access control and subscription-backed usage quotas.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

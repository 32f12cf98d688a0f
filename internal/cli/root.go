package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the taskflow command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskflow",
		Short: "TaskFlow - tasks with a lifecycle, photo proof and reminders",
		Long: `TaskFlow keeps a list of tasks that move through todo, in-progress and completed.

Completing a task needs a photo. Recurring tasks schedule their next occurrence on completion.
The same store is served to Telegram chats, an HTTP API and this command line.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found")
			}
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newCompleteCmd())
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

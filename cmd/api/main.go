package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "support-desk",
	Short: "Support ticket tracker REST API.",
	Long: `support-desk serves the ticket tracker API: registration and login, tickets
with threaded responses, staff assignment and satisfaction ratings, and user administration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newServeCommand(), newMigrateCommand())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

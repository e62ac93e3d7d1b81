package main

import (
	"os"

	"github.com/opswatch/incidentd/cli"
	"github.com/opswatch/incidentd/cmd"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"incidentd",
		"Real-time incident broadcaster",
	)

	// Add subcommands
	rootCmd.AddCommand(cmd.NewDaemonCmd())
	rootCmd.AddCommand(cmd.NewIncidentsCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewLogsCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	cli.ApplyStyledHelpRecursive(rootCmd)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		handler := cli.NewErrorHandler(verbose)
		_ = handler.Handle(err)
		os.Exit(1)
	}
}

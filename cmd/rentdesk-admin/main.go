package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rentdesk/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentdesk-admin",
		Short:         "Administration tool for rentdesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(),
		userCmd(),
		periodsCmd(),
		exportCmd(),
		contractsCmd(),
	)
	return root
}

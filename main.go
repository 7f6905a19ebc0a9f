package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"library-backend/internal/platform/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "library-backend",
		Short:         "Library request and inventory server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", db.DefaultConfigPath, "path to config.yaml")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newImportBooksCmd(&configPath),
		newCreateAdminCmd(&configPath),
		newAuditCmd(&configPath),
	)
	return root
}

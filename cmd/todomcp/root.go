package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "todomcp",
	Short: "JSON-RPC tool-call server for todos",
	Long: `todomcp exposes CRUD and query operations over todo items through a
JSON-RPC tool-call protocol, backed by a remote Supabase/PostgREST table
or a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.todomcp/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

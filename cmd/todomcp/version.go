package main

import (
	"fmt"

	"github.com/existflow/todomcp/server"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", server.ServerName, server.ServerVersion)
	},
}

package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use: "tender-sync",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(migrateCmd)
}

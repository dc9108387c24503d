// Package main is the entry point for the tabletop session server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-tabletop/cmd/server/client"
)

var rootCmd = &cobra.Command{
	Use:   "rpg-tabletop",
	Short: "Tabletop RPG session server",
	Long:  `rpg-tabletop runs live tabletop sessions: dice rolls, combat turns, scenes and quests, all recorded in an action ledger.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(rollCmd)
	rootCmd.AddCommand(client.ClientCmd)
}

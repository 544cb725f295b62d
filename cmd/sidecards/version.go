package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sidecards",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sidecards version %s\n", sidecards.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

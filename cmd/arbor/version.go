package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborlabs/arbor"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of arbor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("arbor version %s\n", arbor.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

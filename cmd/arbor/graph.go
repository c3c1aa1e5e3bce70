package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborlabs/arbor/internal/presentation/graph"
	"github.com/arborlabs/arbor/pkg/story"
)

var graphCmd = &cobra.Command{
	Use:   "graph <story.yaml>",
	Short: "Export the story graph as Mermaid",
	Long:  `Prints the story as a Mermaid flowchart, with conditions as edge labels.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := story.LoadFile(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(graph.GenerateMermaid(st, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

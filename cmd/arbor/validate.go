package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborlabs/arbor/internal/condition"
	"github.com/arborlabs/arbor/pkg/story"
)

var validateCmd = &cobra.Command{
	Use:   "validate <story.yaml>",
	Short: "Check a story graph for consistency",
	Long: `Checks the story for a valid start node, dangling choice targets,
malformed condition expressions, and unreachable nodes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Story is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	st, err := story.LoadFile(path)
	if err != nil {
		return err
	}

	issues := st.Validate(condition.NewEvaluator())
	if len(issues) == 0 {
		return nil
	}

	for _, issue := range issues {
		fmt.Printf("  - %s\n", issue)
	}
	return fmt.Errorf("%d issue(s) found", len(issues))
}

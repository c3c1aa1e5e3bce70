package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arborlabs/arbor"
	"github.com/arborlabs/arbor/internal/logging"
	"github.com/arborlabs/arbor/internal/presentation/tui"
	"github.com/arborlabs/arbor/pkg/adapters/file"
)

var playCmd = &cobra.Command{
	Use:   "play <story.yaml>",
	Short: "Play a story interactively",
	Long: `Starts an interactive player for the given story file. Besides picking
choices by number, the player understands undo, redo, save, load,
checkpoints and quit.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPlay(cmd, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().String("save-dir", ".arbor/saves", "Directory for save files")
	playCmd.Flags().Duration("autosave", 5*time.Second, "Minimum interval between autosaves (0 disables)")
	playCmd.Flags().Bool("no-banner", false, "Skip the startup banner")
	playCmd.Flags().Bool("plain", false, "Disable markdown rendering")
}

func runPlay(cmd *cobra.Command, storyPath string) error {
	saveDir, _ := cmd.Flags().GetString("save-dir")
	autosaveInterval, _ := cmd.Flags().GetDuration("autosave")
	noBanner, _ := cmd.Flags().GetBool("no-banner")
	plain, _ := cmd.Flags().GetBool("plain")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithStore(file.New(saveDir)),
	}
	if autosaveInterval > 0 {
		opts = append(opts, arbor.WithAutosave(arbor.AutosaveConfig{
			Enabled:       true,
			MinInterval:   autosaveInterval,
			EmbedMetadata: true,
		}))
	}

	eng, err := arbor.NewFromFile(storyPath, opts...)
	if err != nil {
		return err
	}

	if issues := eng.ValidateStory(); len(issues) > 0 {
		for _, issue := range issues {
			logger.Warn("story issue", "node", issue.NodeID, "detail", issue.Detail)
		}
	}

	if !noBanner {
		tui.PrintBanner()
	}

	runner := arbor.NewRunner()
	runner.Input = os.Stdin
	runner.Output = os.Stdout
	if !plain {
		runner.Renderer = tui.NewRenderer()
	}

	defer eng.FlushAutosave()
	return runner.Run(context.Background(), eng)
}

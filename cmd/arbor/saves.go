package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborlabs/arbor/pkg/adapters/file"
	"github.com/arborlabs/arbor/pkg/session"
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage save files",
}

var savesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List save slots",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSavesList(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var savesDeleteCmd = &cobra.Command{
	Use:   "delete <slot>",
	Short: "Delete a save slot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("save-dir")
		slots := session.NewManager(file.New(dir))
		if err := slots.Delete(context.Background(), args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("deleted %q\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(savesCmd)
	savesCmd.AddCommand(savesListCmd, savesDeleteCmd)
	savesCmd.PersistentFlags().String("save-dir", ".arbor/saves", "Directory for save files")
}

func runSavesList(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("save-dir")
	store := file.New(dir)
	slots := session.NewManager(store)
	ctx := context.Background()

	keys, err := slots.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("no saves found")
		return nil
	}

	for _, key := range keys {
		line := fmt.Sprintf("  %s", key)

		// Enrich with snapshot metadata when the payload decodes cleanly.
		if snap, err := slots.Load(ctx, key); err == nil {
			line = fmt.Sprintf("  %-20s  story=%s  node=%s  saved=%s",
				key, snap.Metadata.StoryID, snap.State.CurrentNodeID, snap.Metadata.Timestamp)
		}
		fmt.Println(line)
	}
	return nil
}

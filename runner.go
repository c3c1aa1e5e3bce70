package arbor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arborlabs/arbor/pkg/domain"
)

// ContentRenderer transforms node text before it is written, typically
// markdown to ANSI. A nil renderer passes text through unchanged.
type ContentRenderer func(string) (string, error)

// Runner drives an interactive play loop over an Engine using the provided
// IO. Keeping IO injectable makes the loop testable and lets frontends
// (plain CLI, TUI) reuse it.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer ContentRenderer

	// SaveSlot, when set together with an engine store, enables the
	// "save" and "load" commands.
	SaveSlot string
}

// NewRunner creates a Runner. Input and Output must be set before Run
// (use os.Stdin / os.Stdout for a terminal player).
func NewRunner() *Runner {
	return &Runner{SaveSlot: "quicksave"}
}

// Run executes the play loop until the story reaches a node without
// available choices or the player quits.
func (r *Runner) Run(ctx context.Context, eng *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}

	reader := bufio.NewReader(r.Input)
	lastRenderedID := ""

	for {
		node, err := eng.CurrentNode()
		if err != nil {
			return fmt.Errorf("rendering current node: %w", err)
		}

		// Re-print node content only on fresh entry, not after a failed
		// command or an invalid pick.
		if node.ID != lastRenderedID {
			if err := r.renderNode(node); err != nil {
				return err
			}
			lastRenderedID = node.ID
		}

		choices, err := eng.AvailableChoices(ctx)
		if err != nil {
			return err
		}
		if len(choices) == 0 {
			fmt.Fprintln(r.Output, "\n--- The End ---")
			return nil
		}

		for i, c := range choices {
			fmt.Fprintf(r.Output, "  %d) %s\n", i+1, c.Text)
		}
		fmt.Fprint(r.Output, "> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "undo":
			r.report(eng.Undo(ctx))
			lastRenderedID = ""
			continue
		case "redo":
			r.report(eng.Redo(ctx))
			lastRenderedID = ""
			continue
		case "save":
			if err := r.save(ctx, eng); err != nil {
				fmt.Fprintf(r.Output, "save failed: %v\n", err)
			} else {
				fmt.Fprintln(r.Output, "saved.")
			}
			continue
		case "load":
			if err := eng.LoadFromStore(ctx, r.SaveSlot, &LoadOptions{VerifyChecksum: true}); err != nil {
				fmt.Fprintf(r.Output, "load failed: %v\n", err)
			}
			lastRenderedID = ""
			continue
		case "checkpoints":
			for _, cp := range eng.Checkpoints() {
				fmt.Fprintf(r.Output, "  %s  %s  %v\n", cp.ID, cp.Name, cp.Tags)
			}
			continue
		}

		pick, err := strconv.Atoi(input)
		if err != nil || pick < 1 || pick > len(choices) {
			fmt.Fprintf(r.Output, "pick 1-%d, or undo/redo/save/load/quit\n", len(choices))
			continue
		}

		if _, err := eng.SelectChoice(ctx, &choices[pick-1]); err != nil {
			fmt.Fprintf(r.Output, "cannot take that path: %v\n", err)
		}
	}
}

func (r *Runner) renderNode(node *domain.Node) error {
	text := node.Text
	if r.Renderer != nil {
		rendered, err := r.Renderer(text)
		if err == nil {
			text = rendered
		}
	}

	if node.Title != "" {
		fmt.Fprintf(r.Output, "\n== %s ==\n", node.Title)
	}
	if text != "" {
		fmt.Fprintln(r.Output, text)
	}
	return nil
}

func (r *Runner) report(state *domain.State, undoDepth, redoDepth int, err error) {
	if err != nil {
		fmt.Fprintf(r.Output, "%v\n", err)
		return
	}
	fmt.Fprintf(r.Output, "restored %s (undo: %d, redo: %d)\n",
		state.CurrentNodeID, undoDepth, redoDepth)
}

func (r *Runner) save(ctx context.Context, eng *Engine) error {
	return eng.SaveToStore(ctx, r.SaveSlot, &SaveOptions{Checksum: true})
}

package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the Arbor ASCII banner with a green-to-amber fade.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"    _         _                ", "#4ade80"},
		{"   / \\   _ __| |__   ___  _ __ ", "#34d399"},
		{"  / _ \\ | '__| '_ \\ / _ \\| '__|", "#2dd4bf"},
		{" / ___ \\| |  | |_) | (_) | |   ", "#fbbf24"},
		{"/_/   \\_\\_|  |_.__/ \\___/|_|   ", "#f59e0b"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Println()
}

// Highlight renders a string in the accent color, used for choice numbers
// and command hints in the player.
func Highlight(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Foreground(p.Color("#34d399")).Bold().String()
}

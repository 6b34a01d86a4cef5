package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner for interactive runs.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).ColorProfile()
	lines := []termenv.Style{
		p.String(" _   _ _______  ___   _ ____  ").Foreground(p.Color("#22d3ee")),
		p.String("| \\ | | ____\\ \\/ / | | / ___| ").Foreground(p.Color("#38bdf8")),
		p.String("|  \\| |  _|  \\  /| | | \\___ \\ ").Foreground(p.Color("#60a5fa")),
		p.String("| |\\  | |___ /  \\| |_| |___) |").Foreground(p.Color("#818cf8")),
		p.String("|_| \\_|_____/_/\\_\\\\___/|____/ ").Foreground(p.Color("#a78bfa")),
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, p.String("  node bootstrap "+version).Faint())
	fmt.Fprintln(w)
}

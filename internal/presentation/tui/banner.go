package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the storyline banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.Profile
	lines := []struct {
		text  string
		color string
	}{
		{"     _                   _ _            ", "#818cf8"},
		{"  __| |_ ___ _ _ _  _ __| (_)_ _  ___   ", "#a78bfa"},
		{" (_-<  _/ _ \\ '_| || / _| | | ' \\/ -_)  ", "#c084fc"},
		{" /__/\\__\\___/_|  \\_, \\__|_|_|_||_\\___|  ", "#e879f9"},
		{"                 |__/                   ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  version "+version).Faint())
	fmt.Fprintln(w)
}

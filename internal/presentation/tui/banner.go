package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"   __                       __ _               ", "#34d399"},
	{"  / _| ___  _ __ _ __ ___  / _| | _____      __", "#2dd4bf"},
	{" | |_ / _ \\| '__| '_ ` _ \\| |_| |/ _ \\ \\ /\\ / /", "#22d3ee"},
	{" |  _| (_) | |  | | | | | |  _| | (_) \\ V  V / ", "#38bdf8"},
	{" |_|  \\___/|_|  |_| |_| |_|_| |_|\\___/ \\_/\\_/  ", "#60a5fa"},
}

// PrintBanner writes the formflow banner to w, colored when the terminal
// supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w)
}

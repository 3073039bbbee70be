package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Yoko Poke banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{` __   __    _          ___      _       `, "#34d399"},
		{` \ \ / /__ | | _____  | _ \___ | | _____ `, "#2dd4bf"},
		{`  \ V / _ \| |/ / _ \ |  _/ _ \| |/ / -_)`, "#22d3ee"},
		{`   |_|\___/|_|\_\___/ |_| \___/|_|\_\___|`, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  🐼🥢 simulador de WhatsApp  v"+version).Faint())
	fmt.Fprintln(w)
}

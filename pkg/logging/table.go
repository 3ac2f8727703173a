package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	rawMu      sync.Mutex
	rawConsole io.Writer = os.Stdout
	rawFile    io.Writer
	rawColor   = color.New(color.FgWhite)
)

func setRawOutput(console, file io.Writer) {
	rawMu.Lock()
	defer rawMu.Unlock()
	rawConsole = console
	rawFile = file
}

// Raw writes text verbatim, without timestamp or level, to the console and the log file.
func Raw(text string) {
	rawMu.Lock()
	defer rawMu.Unlock()
	if rawConsole != nil {
		_, _ = io.WriteString(rawConsole, rawColor.Sprint(text)+"\n")
	}
	if rawFile != nil {
		_, _ = io.WriteString(rawFile, text+"\n")
	}
}

// Separator writes a banner line announcing a new section.
func Separator(title string) {
	Raw(separatorLine(title))
}

func separatorLine(title string) string {
	return "# ================# " + title + " #================ #"
}

// LogTable writes a boxed table.
func LogTable(headers []string, rows [][]string) {
	if t := Table(headers, rows); t != "" {
		Raw(t)
	}
}

// Table renders rows as a box-drawn grid with centered cells.
// A nil or empty headers slice renders a grid without a header row.
func Table(headers []string, rows [][]string) string {
	cols := len(headers)
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(r []string) {
		for i, c := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	measure(headers)
	for _, r := range rows {
		measure(r)
	}

	var lines []string
	lines = append(lines, border(widths, "╒", "═", "╤", "╕"))
	if len(headers) > 0 {
		lines = append(lines, row(widths, headers), border(widths, "╞", "═", "╪", "╡"))
	}
	for i, r := range rows {
		if i > 0 {
			lines = append(lines, border(widths, "├", "─", "┼", "┤"))
		}
		lines = append(lines, row(widths, r))
	}
	lines = append(lines, border(widths, "╘", "═", "╧", "╛"))
	return strings.Join(lines, "\n")
}

func border(widths []int, left, fill, mid, right string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat(fill, w+2)
	}
	return left + strings.Join(parts, mid) + right
}

func row(widths []int, cells []string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var c string
		if i < len(cells) {
			c = cells[i]
		}
		pad := w - runewidth.StringWidth(c)
		left := pad / 2
		parts[i] = " " + strings.Repeat(" ", left) + c + strings.Repeat(" ", pad-left) + " "
	}
	return "│" + strings.Join(parts, "│") + "│"
}

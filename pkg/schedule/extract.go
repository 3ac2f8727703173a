package schedule

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"zsembells/pkg/model"
)

// ErrNoTable is returned when a page has no timetable.
var ErrNoTable = errors.New("schedule table not found")

// ExtractHourRanges reads the hour column of the first table with tableClass.
// The first row holds column titles and is skipped. Rows without an hour cell,
// or whose text is not a "start-end" pair, are skipped.
func ExtractHourRanges(r io.Reader, tableClass, hourClass string, minRows int) ([]model.HourRange, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	table := findByClass(doc, atom.Table, tableClass)
	if table == nil {
		return nil, ErrNoTable
	}

	rows := collect(table, atom.Tr)
	if len(rows) <= minRows {
		slog.Warn("Schedule table has not enough rows to be considered valid", "rows", len(rows), "min", minRows)
	}
	if len(rows) == 0 {
		return []model.HourRange{}, nil
	}

	ranges := make([]model.HourRange, 0, len(rows)-1)
	for _, tr := range rows[1:] {
		cell := findByClass(tr, atom.Td, hourClass)
		if cell == nil {
			continue
		}
		hr, ok := ParseHourRange(textOf(cell))
		if !ok {
			slog.Warn("Skipping malformed hour range", "text", textOf(cell))
			continue
		}
		ranges = append(ranges, hr)
	}
	return ranges, nil
}

// ParseHourRange turns "8:00- 8:45" into {"8:00", "8:45"}.
func ParseHourRange(s string) (model.HourRange, bool) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	start, end, ok := strings.Cut(s, "-")
	if !ok || start == "" || end == "" || strings.Contains(end, "-") {
		return model.HourRange{}, false
	}
	return model.HourRange{start, end}, true
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func findByClass(n *html.Node, a atom.Atom, class string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findByClass(c, a, class); res != nil {
			return res
		}
	}
	return nil
}

func collect(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
		out = append(out, collect(c, a)...)
	}
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

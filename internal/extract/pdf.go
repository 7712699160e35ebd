package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF parses but yields no text, typically a
// scanned statement.
var ErrNoText = errors.New("no extractable text in PDF")

// ColumnSeparator joins text runs that share a row. Parsers split on it to
// tell table columns apart from spaces inside a cell.
const ColumnSeparator = "\t"

// Text returns the text of every page, pages separated by a blank line.
func Text(data []byte) (string, error) {
	pages, err := Pages(data)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\n"), nil
}

// Pages extracts text page by page. Rows rebuilt from glyph positions are
// tried first, then the reader's own row grouping, then whole-document plain
// text.
func Pages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	if !IsPDF(data) {
		return nil, errors.New("not a PDF file")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return nil, errors.New("PDF has no pages")
	}

	pages = byContent(r)
	if totalLen(pages) > 0 {
		return pages, nil
	}
	pages = byRow(r)
	if totalLen(pages) > 0 {
		return pages, nil
	}

	plain := plainText(r)
	if plain == "" {
		return nil, ErrNoText
	}
	return []string{plain}, nil
}

// IsPDF reports whether data starts with the PDF magic header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-"))
}

// rowTolerance is how far apart, in points, two baselines may be and still
// count as one row.
const rowTolerance = 2.0

// run is a stretch of glyphs drawn one after another on the same baseline.
type run struct {
	x, y float64
	text strings.Builder
	end  float64
}

// byContent groups glyphs into runs, runs into rows by Y, and orders each
// row by X. A glyph continues the current run when it starts where the
// previous one ended, which also holds for fonts without width tables where
// every glyph of a string shares one X.
func byContent(r *pdf.Reader) []string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}
		pages = append(pages, strings.Join(rowsOf(runsOf(content.Text)), "\n"))
	}
	return pages
}

func runsOf(glyphs []pdf.Text) []*run {
	var runs []*run
	var cur *run
	for _, g := range glyphs {
		gap := math.Max(1, g.FontSize/2)
		if cur == nil || math.Abs(g.Y-cur.y) > rowTolerance || math.Abs(g.X-cur.end) > gap {
			cur = &run{x: g.X, y: g.Y}
			runs = append(runs, cur)
		}
		cur.text.WriteString(g.S)
		cur.end = g.X + g.W
	}
	return runs
}

func rowsOf(runs []*run) []string {
	// PDF Y grows upwards.
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].y > runs[b].y })

	var lines []string
	for start := 0; start < len(runs); {
		end := start + 1
		for end < len(runs) && runs[start].y-runs[end].y <= rowTolerance {
			end++
		}
		row := runs[start:end]
		sort.SliceStable(row, func(a, b int) bool { return row[a].x < row[b].x })

		var parts []string
		for _, rn := range row {
			if s := strings.TrimSpace(rn.text.String()); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ColumnSeparator))
		}
		start = end
	}
	return lines
}

func byRow(r *pdf.Reader) []string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				lines = append(lines, strings.Join(parts, ColumnSeparator))
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func plainText(r *pdf.Reader) string {
	rd, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func totalLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joescharf/bugless/internal/models"
)

// A4 portrait geometry in points.
const (
	pageHeight = 842.0
	pageMargin = 50.0
)

// Maximum characters per line for the body and code fonts at their sizes.
const (
	bodyWrap = 90
	codeWrap = 85
)

// pdfFont is a core PDF font at a point size.
type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

var (
	fontTitle   = pdfFont{Name: "Helvetica-Bold", Size: 18}
	fontHeading = pdfFont{Name: "Helvetica-Bold", Size: 13}
	fontBody    = pdfFont{Name: "Helvetica", Size: 10}
	fontCode    = pdfFont{Name: "Courier", Size: 9}
)

// pdfLine is one laid-out line of text. An empty Value is vertical space.
type pdfLine struct {
	Value  string
	Font   pdfFont
	Indent float64
}

func (l pdfLine) height() float64 { return float64(l.Font.Size) * 1.5 }

// pdfText is a text box in pdfcpu's create description.
type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfContent struct {
	Text []pdfText `json:"text,omitempty"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfDocument struct {
	Paper string             `json:"paper"`
	Pages map[string]pdfPage `json:"pages"`
}

// PDFWriter renders a paginated PDF report with the core fonts.
type PDFWriter struct{}

func (PDFWriter) ContentType() string { return "application/pdf" }

func (PDFWriter) Extension() string { return "pdf" }

func (PDFWriter) Write(w io.Writer, rec models.ReviewRecord) error {
	if rec.Result == nil {
		return ErrNoResult
	}
	desc, err := json.Marshal(paginate(pdfLines(rec)))
	if err != nil {
		return fmt.Errorf("encode pdf layout: %w", err)
	}
	if err := api.Create(nil, bytes.NewReader(desc), w, nil); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// pdfLines lays out the report top to bottom.
func pdfLines(rec models.ReviewRecord) []pdfLine {
	res := rec.Result
	var lines []pdfLine
	add := func(f pdfFont, indent float64, width int, s string) {
		for _, l := range wrap(winAnsi(s), width) {
			lines = append(lines, pdfLine{Value: l, Font: f, Indent: indent})
		}
	}
	space := func() { lines = append(lines, pdfLine{Font: fontBody}) }

	add(fontTitle, 0, bodyWrap, "Bugless Code Review")
	space()
	add(fontBody, 0, bodyWrap, "Language: "+languageLabel(rec.Language))
	if rec.CreatedAt != "" {
		add(fontBody, 0, bodyWrap, "Date: "+rec.CreatedAt)
	}
	add(fontBody, 0, bodyWrap, fmt.Sprintf("Score: %d/100 (%s)", res.Score, BandFor(res.Score)))
	space()

	add(fontHeading, 0, bodyWrap, fmt.Sprintf("Issues (%d)", len(res.Issues)))
	if len(res.Issues) == 0 {
		add(fontBody, 12, bodyWrap-4, "No issues found.")
	}
	for _, is := range res.Issues {
		add(fontBody, 12, bodyWrap-4, fmt.Sprintf("[%s] line %s: %s", is.Category, lineLabel(is.Line), is.Message))
	}

	if len(res.Suggestions) > 0 {
		space()
		add(fontHeading, 0, bodyWrap, "Suggestions")
		for _, s := range res.Suggestions {
			add(fontBody, 12, bodyWrap-4, "- "+s)
		}
	}

	space()
	add(fontHeading, 0, bodyWrap, "Corrected Code")
	for _, l := range strings.Split(strings.TrimRight(res.CorrectedCode, "\n"), "\n") {
		add(fontCode, 0, codeWrap, strings.ReplaceAll(l, "\t", "    "))
	}
	return lines
}

// paginate positions lines on A4 pages, starting a new page when the
// next line would cross the bottom margin.
func paginate(lines []pdfLine) pdfDocument {
	doc := pdfDocument{Paper: "A4P", Pages: map[string]pdfPage{}}
	page := 1
	y := pageHeight - pageMargin
	var texts []pdfText

	flush := func() {
		doc.Pages[strconv.Itoa(page)] = pdfPage{Content: pdfContent{Text: texts}}
		texts = nil
	}
	for _, l := range lines {
		if y-l.height() < pageMargin {
			flush()
			page++
			y = pageHeight - pageMargin
		}
		y -= l.height()
		if l.Value != "" {
			texts = append(texts, pdfText{Value: l.Value, Pos: [2]float64{pageMargin + l.Indent, y}, Font: l.Font})
		}
	}
	flush()
	return doc
}

// wrap breaks s into lines of at most width runes, preferring spaces.
// An empty s yields one empty line.
func wrap(s string, width int) []string {
	r := []rune(s)
	if len(r) <= width {
		return []string{s}
	}
	var out []string
	for len(r) > width {
		cut := width
		for i := width; i > width/2; i-- {
			if r[i] == ' ' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(r[:cut]), " "))
		r = []rune(strings.TrimLeft(string(r[cut:]), " "))
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}

// winAnsi replaces characters the core fonts cannot show.
func winAnsi(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < 0x20:
			return -1
		case r > 0xFF:
			return '?'
		}
		return r
	}, s)
}

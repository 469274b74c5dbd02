// Package report renders a finished review as a downloadable document.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joescharf/bugless/internal/models"
)

// Band is a coarse rating of a review score.
type Band string

const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// BandFor returns the band for score.
func BandFor(score int) Band {
	switch {
	case score >= 85:
		return BandGood
	case score >= 60:
		return BandFair
	default:
		return BandPoor
	}
}

// ErrNoResult is returned when the record has not been analyzed.
var ErrNoResult = errors.New("no analysis result to report")

// Writer renders one review record.
type Writer interface {
	Write(w io.Writer, rec models.ReviewRecord) error
	ContentType() string
	Extension() string
}

// ForFormat returns the writer for "md"/"markdown", "txt"/"text" or "pdf".
func ForFormat(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return MarkdownWriter{}, nil
	case "txt", "text":
		return TextWriter{}, nil
	case "pdf":
		return PDFWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Filename is the suggested download name for rec.
func Filename(rec models.ReviewRecord, w Writer) string {
	id := rec.ID
	if id == "" {
		id = "review"
	}
	return fmt.Sprintf("bugless-%s.%s", id, w.Extension())
}

func languageLabel(v string) string {
	for _, l := range models.Languages {
		if l.Value == v {
			return l.Label
		}
	}
	return v
}

func lineLabel(line *int) string {
	if line == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *line)
}

// errWriter remembers the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

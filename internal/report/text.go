package report

import (
	"io"
	"strings"

	"github.com/joescharf/bugless/internal/models"
)

// TextWriter renders a plain-text report.
type TextWriter struct{}

func (TextWriter) ContentType() string { return "text/plain; charset=utf-8" }

func (TextWriter) Extension() string { return "txt" }

func (TextWriter) Write(w io.Writer, rec models.ReviewRecord) error {
	if rec.Result == nil {
		return ErrNoResult
	}
	res := rec.Result
	ew := &errWriter{w: w}
	rule := strings.Repeat("─", 60)

	ew.printf("Bugless Code Review\n%s\n", rule)
	ew.printf("Language: %s\n", languageLabel(rec.Language))
	if rec.CreatedAt != "" {
		ew.printf("Date:     %s\n", rec.CreatedAt)
	}
	ew.printf("Score:    %d/100 (%s)\n%s\n", res.Score, BandFor(res.Score), rule)

	ew.printf("\nIssues (%d)\n", len(res.Issues))
	if len(res.Issues) == 0 {
		ew.printf("  No issues found.\n")
	}
	for _, is := range res.Issues {
		ew.printf("  [%s] line %s: %s\n", is.Category, lineLabel(is.Line), is.Message)
	}

	if len(res.Suggestions) > 0 {
		ew.printf("\nSuggestions\n")
		for _, s := range res.Suggestions {
			ew.printf("  - %s\n", s)
		}
	}

	ew.printf("\nCorrected Code\n%s\n%s\n", rule, strings.TrimRight(res.CorrectedCode, "\n"))
	return ew.err
}

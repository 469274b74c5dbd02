package report

import (
	"io"
	"strings"

	"github.com/joescharf/bugless/internal/models"
)

// MarkdownWriter renders a Markdown report.
type MarkdownWriter struct{}

func (MarkdownWriter) ContentType() string { return "text/markdown; charset=utf-8" }

func (MarkdownWriter) Extension() string { return "md" }

func (MarkdownWriter) Write(w io.Writer, rec models.ReviewRecord) error {
	if rec.Result == nil {
		return ErrNoResult
	}
	res := rec.Result
	ew := &errWriter{w: w}

	ew.printf("# Bugless Code Review\n\n")
	ew.printf("- **Language:** %s\n", languageLabel(rec.Language))
	if rec.CreatedAt != "" {
		ew.printf("- **Date:** %s\n", rec.CreatedAt)
	}
	ew.printf("- **Score:** %d/100 (%s)\n\n", res.Score, BandFor(res.Score))

	ew.printf("## Issues (%d)\n\n", len(res.Issues))
	if len(res.Issues) == 0 {
		ew.printf("No issues found.\n\n")
	} else {
		ew.printf("| Line | Type | Message |\n")
		ew.printf("|------|------|---------|\n")
		for _, is := range res.Issues {
			ew.printf("| %s | %s | %s |\n", lineLabel(is.Line), is.Category, mdCell(is.Message))
		}
		ew.printf("\n")
	}

	if len(res.Suggestions) > 0 {
		ew.printf("## Suggestions\n\n")
		for _, s := range res.Suggestions {
			ew.printf("- %s\n", s)
		}
		ew.printf("\n")
	}

	ew.printf("## Corrected Code\n\n")
	fence := fenceFor(res.CorrectedCode)
	ew.printf("%s%s\n%s\n%s\n", fence, rec.Language, strings.TrimRight(res.CorrectedCode, "\n"), fence)
	return ew.err
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// fenceFor returns a backtick fence longer than any run inside code.
func fenceFor(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugless/internal/history"
	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/output"
	"github.com/joescharf/bugless/internal/report"
	"github.com/joescharf/bugless/internal/review"
	"github.com/joescharf/bugless/internal/view"
)

// codeAnalyzer reviews one piece of code.
type codeAnalyzer interface {
	Analyze(ctx context.Context, language, code string) (*models.AnalysisResult, error)
}

// newAnalyzer is replaced in tests.
var newAnalyzer = func() (codeAnalyzer, error) {
	r, err := newRequester(nil)
	if err != nil {
		return nil, err
	}
	return r, nil
}

var (
	analyzeLanguage string
	analyzeFormat   string
	analyzeUID      string
)

// extLanguages maps file extensions to language values.
var extLanguages = map[string]string{
	".js":    "javascript",
	".mjs":   "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".py":    "python",
	".java":  "java",
	".go":    "go",
	".cs":    "csharp",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".rb":    "ruby",
	".php":   "php",
	".rs":    "rust",
	".kt":    "kotlin",
	".swift": "swift",
	".sql":   "sql",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Review a source file from the command line",
	Long: `Send a source file to the configured model and print the review.
Use "-" to read the code from stdin. The language is detected from the
file extension unless --language is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(cmd.Context(), args[0], cmd.InOrStdin())
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeLanguage, "language", "l", "", "language value (see 'bugless languages')")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "pretty", "output format: pretty, json, md, txt or pdf")
	analyzeCmd.Flags().StringVar(&analyzeUID, "uid", "", "record the review in this user's history")
	rootCmd.AddCommand(analyzeCmd)
}

// detectLanguage picks the language for path, falling back to the default.
func detectLanguage(path string) string {
	if l, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return models.DefaultLanguage
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func analyzeRun(ctx context.Context, path string, stdin io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	code, err := readSource(path, stdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return errors.New(view.MsgEmptyCode)
	}

	language := analyzeLanguage
	if language == "" {
		language = detectLanguage(path)
	}
	if !models.IsLanguage(language) {
		return fmt.Errorf("unknown language %q", language)
	}

	format := strings.ToLower(analyzeFormat)
	var writer report.Writer
	if format != "pretty" && format != "json" {
		if writer, err = report.ForFormat(format); err != nil {
			return err
		}
	}

	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	ui.VerboseLog("Reviewing %s as %s", path, language)
	res, err := a.Analyze(ctx, language, code)
	if err != nil {
		return errors.New(review.Classify(err).Message)
	}

	rec := models.ReviewRecord{
		ID:         view.NewIDs().Next(),
		CreatedAt:  time.Now().UTC().Format(models.TimeLayout),
		Language:   language,
		SourceCode: code,
		Result:     res,
	}

	if analyzeUID != "" {
		if err := saveReview(ctx, analyzeUID, rec); err != nil {
			ui.Warning("Review not recorded: %v", err)
		}
	}

	switch {
	case writer != nil:
		return writer.Write(ui.Out, rec)
	case format == "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		printReview(rec)
		return nil
	}
}

func saveReview(ctx context.Context, uid string, rec models.ReviewRecord) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	return history.New(s, slog.Default(), nil).Save(ctx, uid, rec)
}

// printReview renders a review for the terminal.
func printReview(rec models.ReviewRecord) {
	res := rec.Result
	fmt.Fprintf(ui.Out, "Score: %s  (%s)\n\n",
		output.ScoreColor(res.Score), report.BandFor(res.Score))

	if len(res.Issues) == 0 {
		ui.Success("No issues found")
	} else {
		table := ui.Table([]string{"Line", "Type", "Message"})
		for _, is := range res.Issues {
			line := "-"
			if is.Line != nil {
				line = strconv.Itoa(*is.Line)
			}
			_ = table.Append([]string{line, output.CategoryColor(string(is.Category)), is.Message})
		}
		_ = table.Render()
	}

	if len(res.Suggestions) > 0 {
		ui.Heading("Suggestions")
		ui.Bullets(res.Suggestions)
	}

	if res.CorrectedCode != "" {
		ui.Heading("Corrected code")
		ui.Rule()
		fmt.Fprintln(ui.Out, strings.TrimRight(res.CorrectedCode, "\n"))
		ui.Rule()
	}
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages a review can target",
	RunE: func(cmd *cobra.Command, args []string) error {
		return languagesRun()
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func languagesRun() error {
	table := ui.Table([]string{"Value", "Label"})
	for _, l := range models.Languages {
		_ = table.Append([]string{l.Value, l.Label})
	}
	return table.Render()
}

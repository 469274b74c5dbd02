package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/view"
)

type stubAnalyzer struct {
	language string
	code     string
	result   *models.AnalysisResult
	err      error
}

func (s *stubAnalyzer) Analyze(_ context.Context, language, code string) (*models.AnalysisResult, error) {
	s.language = language
	s.code = code
	return s.result, s.err
}

func sampleResult() *models.AnalysisResult {
	line := 3
	return &models.AnalysisResult{
		Issues: []models.Issue{
			{Line: &line, Category: models.IssueCategoryLogic, Message: "loop never terminates"},
			{Category: models.IssueCategoryStyle, Message: "prefer short names"},
		},
		Suggestions:   []string{"add a test"},
		Score:         72,
		CorrectedCode: "fmt.Println(\"fixed\")\n",
	}
}

// analyzeEnv installs a stub analyzer and resets the analyze flags.
func analyzeEnv(t *testing.T, a *stubAnalyzer) string {
	t.Helper()
	dir := testEnv(t)

	orig := newAnalyzer
	newAnalyzer = func() (codeAnalyzer, error) { return a, nil }
	t.Cleanup(func() {
		newAnalyzer = orig
		analyzeLanguage, analyzeFormat, analyzeUID = "", "pretty", ""
	})
	analyzeLanguage, analyzeFormat, analyzeUID = "", "pretty", ""
	return dir
}

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"App.TSX", "typescript"},
		{"script.py", "python"},
		{"lib.rs", "rust"},
		{"README", models.DefaultLanguage},
		{"notes.txt", models.DefaultLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(tt.path))
		})
	}
}

func TestAnalyzeRun_Pretty(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	path := writeSource(t, dir, "main.go", "package main\n")

	require.NoError(t, analyzeRun(context.Background(), path, nil))

	assert.Equal(t, "go", a.language)
	assert.Equal(t, "package main\n", a.code)

	out := ui.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "72")
	assert.Contains(t, out, "fair")
	assert.Contains(t, out, "loop never terminates")
	assert.Contains(t, out, "add a test")
	assert.Contains(t, out, `fmt.Println("fixed")`)
}

func TestAnalyzeRun_Stdin(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	analyzeEnv(t, a)
	analyzeLanguage = "python"

	require.NoError(t, analyzeRun(context.Background(), "-", strings.NewReader("print(1)")))
	assert.Equal(t, "python", a.language)
	assert.Equal(t, "print(1)", a.code)
}

func TestAnalyzeRun_JSON(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	analyzeFormat = "json"
	path := writeSource(t, dir, "a.js", "let x = 1")

	require.NoError(t, analyzeRun(context.Background(), path, nil))

	var got models.AnalysisResult
	require.NoError(t, json.Unmarshal(ui.Out.(*bytes.Buffer).Bytes(), &got))
	assert.Equal(t, 72, got.Score)
	assert.Len(t, got.Issues, 2)
}

func TestAnalyzeRun_Markdown(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	analyzeFormat = "md"
	path := writeSource(t, dir, "a.js", "let x = 1")

	require.NoError(t, analyzeRun(context.Background(), path, nil))
	out := ui.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "# ")
	assert.Contains(t, out, "loop never terminates")
}

func TestAnalyzeRun_PDF(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	analyzeFormat = "pdf"
	path := writeSource(t, dir, "a.js", "let x = 1")

	require.NoError(t, analyzeRun(context.Background(), path, nil))
	assert.True(t, bytes.HasPrefix(ui.Out.(*bytes.Buffer).Bytes(), []byte("%PDF-")))
}

func TestAnalyzeRun_EmptyCode(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	path := writeSource(t, dir, "a.js", "  \n\t")

	err := analyzeRun(context.Background(), path, nil)
	require.Error(t, err)
	assert.Equal(t, view.MsgEmptyCode, err.Error())
	assert.Empty(t, a.code, "analyzer must not be called")
}

func TestAnalyzeRun_UnknownLanguage(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	analyzeLanguage = "cobol"
	path := writeSource(t, dir, "a.cbl", "DISPLAY 'HI'.")

	err := analyzeRun(context.Background(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown language")
}

func TestAnalyzeRun_UnknownFormat(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	analyzeFormat = "docx"
	path := writeSource(t, dir, "a.js", "let x = 1")

	err := analyzeRun(context.Background(), path, nil)
	require.Error(t, err)
	assert.Empty(t, a.code, "format is checked before the model is called")
}

func TestAnalyzeRun_ClassifiesFailure(t *testing.T) {
	a := &stubAnalyzer{err: errors.New("googleapi: Error 429: quota exceeded")}
	dir := analyzeEnv(t, a)
	path := writeSource(t, dir, "a.js", "let x = 1")

	err := analyzeRun(context.Background(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestAnalyzeRun_MissingFile(t *testing.T) {
	analyzeEnv(t, &stubAnalyzer{})
	err := analyzeRun(context.Background(), filepath.Join(t.TempDir(), "nope.go"), nil)
	require.Error(t, err)
}

func TestAnalyzeRun_RecordsHistory(t *testing.T) {
	a := &stubAnalyzer{result: sampleResult()}
	dir := analyzeEnv(t, a)
	analyzeUID = "user-1"
	path := writeSource(t, dir, "main.go", "package main\n")

	require.NoError(t, analyzeRun(context.Background(), path, nil))

	t.Cleanup(func() { historyUID, historyEmail = "", "" })
	historyUID = "user-1"
	ui.Out.(*bytes.Buffer).Reset()
	require.NoError(t, historyListRun(context.Background()))

	out := ui.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "72")
}

func TestLanguagesRun(t *testing.T) {
	testEnv(t)
	require.NoError(t, languagesRun())
	out := ui.Out.(*bytes.Buffer).String()
	for _, l := range models.Languages {
		assert.Contains(t, out, l.Label)
	}
}

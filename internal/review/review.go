// Package review turns source code into a structured AnalysisResult by
// prompting a generative model and validating its reply.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/joescharf/bugless/internal/llm"
	"github.com/joescharf/bugless/internal/models"
)

// Temperature is the sampling temperature for review calls.
const Temperature = 0.2

// Observer receives one call per finished analysis. outcome is "ok" or
// the failure Kind.
type Observer interface {
	ObserveAnalysis(outcome string, d time.Duration)
}

// Requester runs analyses against a model. A nil model is treated as
// unconfigured.
type Requester struct {
	model    llm.Model
	logger   *slog.Logger
	observer Observer
}

// NewRequester creates a Requester. logger and obs may be nil.
func NewRequester(model llm.Model, logger *slog.Logger, obs Observer) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{
		model:    model,
		logger:   logger.With("system", "review"),
		observer: obs,
	}
}

// Configured reports whether a model with credentials is available.
func (r *Requester) Configured() bool {
	return r.model != nil && r.model.Configured()
}

// Analyze reviews code written in language. It makes a single attempt and
// never retries. Failures are always *Error.
func (r *Requester) Analyze(ctx context.Context, language, code string) (*models.AnalysisResult, error) {
	start := time.Now()
	res, err := r.analyze(ctx, language, code)

	outcome := "ok"
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			outcome = string(e.Kind)
		}
		r.logger.Warn("analysis failed", "language", language, "kind", outcome, "error", errors.Unwrap(err))
	}
	if r.observer != nil {
		r.observer.ObserveAnalysis(outcome, time.Since(start))
	}
	return res, err
}

func (r *Requester) analyze(ctx context.Context, language, code string) (*models.AnalysisResult, error) {
	if !r.Configured() {
		return nil, &Error{Kind: KindConfiguration, Message: MsgNotConfigured, Err: llm.ErrNotConfigured}
	}

	text, err := r.model.Generate(ctx, llm.Request{
		Prompt:      BuildPrompt(language, code),
		Schema:      ResponseSchema(),
		Temperature: Temperature,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, &Error{Kind: KindConfiguration, Message: MsgNotConfigured, Err: err}
		}
		return nil, Classify(err)
	}

	return ParseResult([]byte(text))
}

// ParseResult decodes and validates a raw model reply. Malformed JSON is
// KindUnknown; well-formed JSON with missing or mistyped fields is
// KindValidation.
func ParseResult(data []byte) (*models.AnalysisResult, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, &Error{Kind: KindUnknown, Message: MsgUnparsable, Err: errors.New("reply is not valid JSON")}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, invalid("reply is not an object")
	}

	res := &models.AnalysisResult{}

	score, err := decodeScore(raw["score"])
	if err != nil {
		return nil, invalid(err.Error())
	}
	res.Score = score

	if res.Issues, err = decodeIssues(raw["issues"]); err != nil {
		return nil, invalid(err.Error())
	}

	if !isArray(raw["suggestions"]) {
		return nil, invalid("suggestions is not an array")
	}
	if err := json.Unmarshal(raw["suggestions"], &res.Suggestions); err != nil {
		return nil, invalid("suggestions must be strings")
	}

	if !isString(raw["editedCode"]) {
		return nil, invalid("editedCode is not a string")
	}
	if err := json.Unmarshal(raw["editedCode"], &res.CorrectedCode); err != nil {
		return nil, invalid("editedCode is not a string")
	}

	return res, nil
}

func invalid(detail string) *Error {
	return &Error{Kind: KindValidation, Message: MsgInvalidResponse, Err: fmt.Errorf("%w: %s", ErrValidation, detail)}
}

func decodeScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("score is missing")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errors.New("score is not a number")
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("score %v is not an integer", f)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("score %v is outside 0-100", f)
	}
	return int(f), nil
}

type rawIssue struct {
	Line    *float64 `json:"line"`
	Type    *string  `json:"type"`
	Message *string  `json:"message"`
}

func decodeIssues(raw json.RawMessage) ([]models.Issue, error) {
	if !isArray(raw) {
		return nil, errors.New("issues is not an array")
	}
	var items []rawIssue
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("issues: %w", err)
	}

	issues := make([]models.Issue, 0, len(items))
	for i, it := range items {
		if it.Message == nil {
			return nil, fmt.Errorf("issue %d has no message", i)
		}
		issue := models.Issue{Message: *it.Message, Category: models.IssueCategoryStyle}
		if it.Type != nil {
			if c, ok := models.ParseIssueCategory(*it.Type); ok {
				issue.Category = c
			}
		}
		if it.Line != nil {
			if *it.Line != math.Trunc(*it.Line) {
				return nil, fmt.Errorf("issue %d line is not an integer", i)
			}
			if *it.Line >= 0 {
				line := int(*it.Line)
				issue.Line = &line
			}
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func isArray(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '['
}

func isString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}

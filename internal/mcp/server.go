// Package mcp exposes code analysis and review history as MCP tools.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/report"
	"github.com/joescharf/bugless/internal/view"
)

// Analyzer produces an analysis for a piece of code.
type Analyzer interface {
	Analyze(ctx context.Context, language, code string) (*models.AnalysisResult, error)
}

// History lists and records a user's past reviews.
type History interface {
	Save(ctx context.Context, uid string, rec models.ReviewRecord) error
	List(ctx context.Context, uid string) []models.ReviewRecord
}

// Server exposes the analyzer and the history store as MCP tools.
type Server struct {
	analyzer Analyzer
	history  History
	ids      *view.IDs
	version  string
}

// NewServer creates the MCP server wrapper. history may be nil, in which
// case analyses are not recorded and the history tool is not offered.
func NewServer(a Analyzer, h History, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{analyzer: a, history: h, ids: view.NewIDs(), version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("bugless", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.analyzeCodeTool())
	srv.AddTool(s.listLanguagesTool())
	if s.history != nil {
		srv.AddTool(s.listHistoryTool())
	}
	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// bugless_analyze_code
func (s *Server) analyzeCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugless_analyze_code",
		mcp.WithDescription("Review a piece of source code. Returns issues (line, type, message), suggestions, a 0-100 score and a corrected version."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review")),
		mcp.WithString("language", mcp.Description("Language value, e.g. go, python (default javascript)")),
		mcp.WithString("format", mcp.Description("Output format: json (default), markdown or text")),
		mcp.WithString("uid", mcp.Description("Record the review in this user's history")),
	)
	return tool, s.handleAnalyzeCode
}

func (s *Server) handleAnalyzeCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := request.GetString("code", "")
	if strings.TrimSpace(code) == "" {
		return mcp.NewToolResultError(view.MsgEmptyCode), nil
	}
	language := request.GetString("language", models.DefaultLanguage)
	if !models.IsLanguage(language) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown language %q", language)), nil
	}
	format := request.GetString("format", "json")
	var rw report.Writer
	if format != "json" {
		var err error
		if rw, err = report.ForFormat(format); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if rw.Extension() == "pdf" {
			return mcp.NewToolResultError("pdf reports are binary; use markdown or text"), nil
		}
	}

	res, err := s.analyzer.Analyze(ctx, language, code)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec := models.ReviewRecord{
		ID:         s.ids.Next(),
		CreatedAt:  time.Now().UTC().Format(models.TimeLayout),
		Language:   language,
		SourceCode: code,
		Result:     res,
	}
	if uid := request.GetString("uid", ""); uid != "" && s.history != nil {
		if err := s.history.Save(ctx, uid, rec); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis succeeded but was not recorded: %v", err)), nil
		}
	}

	if rw == nil {
		data, err := json.Marshal(res)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	var buf bytes.Buffer
	if err := rw.Write(&buf, rec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render report: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// bugless_list_history
func (s *Server) listHistoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugless_list_history",
		mcp.WithDescription("List a user's most recent reviews, newest first. Returns id, date, language and score."),
		mcp.WithString("uid", mcp.Required(), mcp.Description("User id")),
	)
	return tool, s.handleListHistory
}

func (s *Server) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := request.GetString("uid", "")
	if uid == "" {
		return mcp.NewToolResultError("uid is required"), nil
	}

	type historyOut struct {
		ID       string `json:"id"`
		Date     string `json:"date"`
		Language string `json:"language"`
		Score    int    `json:"score"`
		Issues   int    `json:"issues"`
	}

	records := s.history.List(ctx, uid)
	out := make([]historyOut, len(records))
	for i, r := range records {
		out[i] = historyOut{ID: r.ID, Date: r.CreatedAt, Language: r.Language}
		if r.Result != nil {
			out[i].Score = r.Result.Score
			out[i].Issues = len(r.Result.Issues)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal history: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// bugless_list_languages
func (s *Server) listLanguagesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugless_list_languages",
		mcp.WithDescription("List the language values accepted by bugless_analyze_code."),
	)
	return tool, s.handleListLanguages
}

func (s *Server) handleListLanguages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(models.Languages)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal languages: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

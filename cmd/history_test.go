package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugless/internal/history"
	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/store"
)

func historyEnv(t *testing.T) store.Store {
	t.Helper()
	testEnv(t)
	historyUID, historyEmail = "", ""
	t.Cleanup(func() { historyUID, historyEmail = "", "" })

	s, err := getStore()
	require.NoError(t, err)
	return s
}

func seedRecord(t *testing.T, s store.Store, uid, id string, score int, at time.Time) {
	t.Helper()
	rec := models.ReviewRecord{
		ID:         id,
		CreatedAt:  at.UTC().Format(models.TimeLayout),
		Language:   "go",
		SourceCode: "package main",
		Result:     &models.AnalysisResult{Score: score, Issues: []models.Issue{}, Suggestions: []string{}},
	}
	require.NoError(t, history.New(s, nil, nil).Save(context.Background(), uid, rec))
}

func TestHistoryListRun_RequiresUser(t *testing.T) {
	historyEnv(t)
	err := historyListRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--uid or --email")
}

func TestHistoryListRun_Empty(t *testing.T) {
	historyEnv(t)
	historyUID = "nobody"

	require.NoError(t, historyListRun(context.Background()))
	assert.Contains(t, ui.Out.(*bytes.Buffer).String(), "No reviews recorded")
}

func TestHistoryListRun_ByUID(t *testing.T) {
	s := historyEnv(t)
	now := time.Now()
	seedRecord(t, s, "u1", "rev-old", 91, now.Add(-time.Hour))
	seedRecord(t, s, "u1", "rev-new", 40, now)
	seedRecord(t, s, "u2", "rev-other", 55, now)
	historyUID = "u1"

	require.NoError(t, historyListRun(context.Background()))
	out := ui.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "rev-old")
	assert.Contains(t, out, "rev-new")
	assert.NotContains(t, out, "rev-other")
	assert.Less(t, bytes.Index([]byte(out), []byte("rev-new")), bytes.Index([]byte(out), []byte("rev-old")),
		"newest record is listed first")
}

func TestHistoryListRun_ByEmail(t *testing.T) {
	s := historyEnv(t)
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &store.Account{
		UID:      "acct-1",
		Email:    "dev@example.com",
		Provider: "password",
	}))
	seedRecord(t, s, "acct-1", "rev-mail", 88, time.Now())
	historyEmail = "dev@example.com"

	require.NoError(t, historyListRun(ctx))
	assert.Contains(t, ui.Out.(*bytes.Buffer).String(), "rev-mail")
}

func TestHistoryListRun_UnknownEmail(t *testing.T) {
	historyEnv(t)
	historyEmail = "ghost@example.com"

	err := historyListRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account")
}

func TestVersionRun(t *testing.T) {
	testEnv(t)
	origV, origC, origD := buildVersion, buildCommit, buildDate
	t.Cleanup(func() { buildVersion, buildCommit, buildDate = origV, origC, origD })
	buildVersion, buildCommit, buildDate = "1.2.3", "abc123", "2026-01-01"

	require.NoError(t, versionRun())
	assert.Equal(t, "bugless 1.2.3 (commit abc123, built 2026-01-01)\n", ui.Out.(*bytes.Buffer).String())
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugless/internal/history"
	"github.com/joescharf/bugless/internal/output"
	"github.com/joescharf/bugless/internal/store"
)

var (
	historyUID   string
	historyEmail string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded reviews",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's most recent reviews",
	Long: `List the most recent reviews recorded for a user, newest first.
Identify the user with --uid or with the --email of a local account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd.Context())
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyUID, "uid", "", "user id")
	historyListCmd.Flags().StringVar(&historyEmail, "email", "", "email of a local account")
	historyListCmd.MarkFlagsMutuallyExclusive("uid", "email")

	historyCmd.AddCommand(historyListCmd)
	rootCmd.AddCommand(historyCmd)
}

// resolveUID returns the uid given directly or looked up by email.
func resolveUID(ctx context.Context, s store.Store) (string, error) {
	if historyUID != "" {
		return historyUID, nil
	}
	if historyEmail == "" {
		return "", errors.New("one of --uid or --email is required")
	}
	a, err := s.GetAccountByEmail(ctx, historyEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("no account for %s", historyEmail)
		}
		return "", err
	}
	return a.UID, nil
}

func historyListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	uid, err := resolveUID(ctx, s)
	if err != nil {
		return err
	}

	res := history.New(s, slog.Default(), nil).Fetch(ctx, uid)
	switch res.Outcome {
	case history.OutcomeFailed:
		return fmt.Errorf("read history: %w", res.Err)
	case history.OutcomeEmpty:
		ui.Info("No reviews recorded for %s", uid)
		return nil
	}
	ui.VerboseLog("Read %d records via %s path", len(res.Records), res.Path)

	table := ui.Table([]string{"ID", "Date", "Language", "Score", "Issues"})
	for _, rec := range res.Records {
		score, issues := "-", "-"
		if rec.Result != nil {
			score = output.ScoreColor(rec.Result.Score)
			issues = strconv.Itoa(len(rec.Result.Issues))
		}
		_ = table.Append([]string{rec.ID, rec.CreatedAt, rec.Language, score, issues})
	}
	return table.Render()
}

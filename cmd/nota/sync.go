package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/mail"
	"github.com/Veraticus/nota-flow/internal/pipeline"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import receipts from Gmail",
		Long: `Search the mailbox for receipts received since the last sync and
store every one that yields a merchant and a total.

The first sync (or --first) looks back gmail.first_sync_days days. Messages
already imported are skipped, so running sync again is always safe.`,
		RunE: runSync,
	}

	cmd.Flags().Bool("first", false, "Ignore the last sync time and scan the first-sync window")
	cmd.Flags().Int("max", 0, "Maximum messages to process (default: gmail.max_candidates)")
	cmd.Flags().Bool("dry-run", false, "Extract and show results without saving")
	cmd.Flags().BoolP("verbose", "v", false, "List the reason for every message not imported")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	first, _ := cmd.Flags().GetBool("first")
	limit, _ := cmd.Flags().GetInt("max")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if err := cfg.ValidateUser(); err != nil {
		return err
	}
	if err := cfg.ValidateGmail(); err != nil {
		return err
	}

	source, err := newGmailSource(ctx)
	if err != nil {
		return err
	}

	extractor, err := initExtractor(ctx)
	if err != nil {
		return err
	}
	defer extractor.Close()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	syncer := pipeline.NewSyncer(source, extractor, store, cfg.Sync, slog.Default())

	var bar *progressbar.ProgressBar
	opts := pipeline.SyncOptions{
		FirstSync:     first,
		DryRun:        dryRun,
		MaxCandidates: limit,
		Progress: func(done, total int) {
			if bar == nil {
				bar = newProgressBar(total)
			}
			_ = bar.Set(done)
		},
	}

	stats, err := syncer.Sync(ctx, cfg.User.ID, opts)
	if bar != nil {
		_ = bar.Finish()
	}

	out := cmd.OutOrStdout()
	if stats.WindowDays > 0 {
		_, _ = fmt.Fprintln(out, cli.RenderSyncStats(stats, verbose))
	}
	if err != nil {
		return syncError(err)
	}

	if dryRun {
		_, _ = fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing was saved."))
	}
	return nil
}

// newGmailSource loads the saved OAuth token and opens the mailbox.
func newGmailSource(ctx context.Context) (*mail.GmailSource, error) {
	token, err := mail.LoadToken(cfg.Gmail.OAuth.TokenFile)
	if err != nil {
		return nil, common.NewUserError("Gmail is not connected. Run 'nota auth gmail' first.", err)
	}

	ts := mail.TokenSource(ctx, cfg.Gmail.OAuth, token)
	return mail.NewGmailSource(ctx, ts, mail.GmailConfig{PageSize: cfg.Gmail.PageSize}, slog.Default())
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[green][bold]Reading receipts...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(os.Stderr)
		}),
	)
}

// syncError turns a failed run into something fit to print. Per-message details
// are already in the summary and the log.
func syncError(err error) error {
	switch {
	case common.IsConfigError(err):
		return err
	case errors.Is(err, context.Canceled):
		return common.NewUserError("Sync interrupted. Receipts imported so far are saved.", err)
	default:
		slog.Error("Sync failed", "error", err)
		return common.NewUserError("Could not reach the mailbox. Check your connection and run 'nota auth gmail' if the problem persists.", err)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/pipeline"
	"github.com/Veraticus/nota-flow/internal/ratelimit"
)

// maxImageBytes matches the largest image the extractor providers accept inline.
const maxImageBytes = 20 << 20

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <image>",
		Short: "Import a photo of a paper receipt",
		Long: `Read a photo or scan of a receipt with the configured extractor and
store the result. Scans are limited to scan.quota_per_hour per user.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	image, err := os.ReadFile(args[0]) // #nosec G304
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not open %s", args[0]), err)
	}
	if len(image) > maxImageBytes {
		return common.NewUserError("the image is larger than 20 MB", pipeline.ErrRejected)
	}

	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		return common.NewUserError(fmt.Sprintf("%s is not an image (%s)", args[0], mimeType), pipeline.ErrRejected)
	}

	if err := cfg.ValidateUser(); err != nil {
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

	limiter := ratelimit.NewWindowLimiter(store, cfg.Scan.QuotaPerHour, time.Hour, slog.Default())
	if pruned, err := limiter.Prune(ctx); err != nil {
		slog.Warn("Failed to prune scan quota events", "error", err)
	} else if pruned > 0 {
		slog.Debug("Pruned scan quota events", "count", pruned)
	}

	scanner := pipeline.NewScanner(extractor, store, limiter, pipeline.ScanConfig{
		LocaleHint:   cfg.Extractor.LocaleHint,
		QuotaPerHour: cfg.Scan.QuotaPerHour,
	}, slog.Default())

	txn, err := scanner.Scan(ctx, cfg.User.ID, image, mimeType)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.RenderTransaction(txn))
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Receipt saved"))
	return nil
}

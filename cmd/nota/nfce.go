package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/nfce"
	"github.com/Veraticus/nota-flow/internal/pipeline"
	"github.com/Veraticus/nota-flow/internal/service"
)

func nfceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nfce <qr-payload>",
		Short: "Read an NFC-e from its QR code",
		Long: `Fetch the state portal page behind an NFC-e QR code and show what
was read. Pass --save to store it as a transaction.

The payload is either the portal URL from the QR code or the bare
"chave|..." text, in which case nfce.portal must be set.`,
		Args: cobra.ExactArgs(1),
		RunE: runNFCe,
	}

	cmd.Flags().Bool("save", false, "Store the NFC-e as a transaction")

	return cmd
}

func runNFCe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	save, _ := cmd.Flags().GetBool("save")

	scraper := nfce.NewScraper(nfce.ScraperConfig{
		UserAgent: cfg.NFCe.UserAgent,
		Timeout:   cfg.NFCe.Timeout,
	}, slog.Default())

	var store service.Storage
	if save {
		if err := cfg.ValidateUser(); err != nil {
			return err
		}
		s, err := initStorage(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	importer := pipeline.NewImporter(scraper, store, cfg.NFCe.Portal, slog.Default())
	result, err := importer.ImportNFCe(ctx, cfg.User.ID, args[0], save)

	out := cmd.OutOrStdout()
	if result.Preview.URL != "" {
		_, _ = fmt.Fprintln(out, cli.RenderNFCePreview(result.Preview))
	}
	if err != nil {
		return err
	}

	if result.Transaction != nil {
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("NFC-e saved as "+result.Transaction.ID))
	}
	return nil
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/mail"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored transactions",
	}

	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write transactions to a Google Sheets spreadsheet",
		Long: `Replace the contents of the export spreadsheet with a summary by category
and one row per transaction.

When sheets.spreadsheet_id is empty a new spreadsheet is created; set the
printed id in your config to keep exporting to it.`,
		Args: cobra.NoArgs,
		RunE: runExportSheets,
	}

	cmd.Flags().String("from", "", "Only transactions on or after this date")
	cmd.Flags().String("to", "", "Only transactions on or before this date")

	return cmd
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	start, err := flagDate("from", from)
	if err != nil {
		return err
	}
	end, err := flagDate("to", to)
	if err != nil {
		return err
	}

	if err := cfg.ValidateUser(); err != nil {
		return err
	}
	if err := cfg.ValidateSheets(); err != nil {
		return err
	}

	var ts oauth2.TokenSource
	if cfg.Sheets.Export.ServiceAccountPath == "" {
		oauth := cfg.SheetsOAuth()
		token, err := mail.LoadToken(oauth.TokenFile)
		if err != nil {
			return common.NewUserError("Google Sheets is not connected. Run 'nota auth sheets' first.", err)
		}
		ts = mail.TokenSource(ctx, oauth, token)
	}

	writer, err := sheets.NewWriter(ctx, cfg.Sheets.Export, ts, slog.Default())
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.ListTransactions(ctx, cfg.User.ID, model.TransactionFilter{StartDate: start, EndDate: end})
	if err != nil {
		return err
	}

	rng := sheets.DateRange{}
	if start != nil {
		rng.Start = *start
	}
	if end != nil {
		rng.End = *end
	}

	id, err := writer.Write(ctx, txns, rng)
	if err != nil {
		return common.NewUserError("Could not write the spreadsheet. Check sheets.spreadsheet_id and your access.", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to spreadsheet %s", len(txns), id)))
	return nil
}

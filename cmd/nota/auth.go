package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/mail"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
		Long: `Authenticate with external services. Gmail read-only access is required by
sync; spreadsheet access is needed only by export.`,
	}

	cmd.AddCommand(authGmailCmd())
	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authGmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gmail",
		Short: "Grant read-only access to your Gmail mailbox",
		Long: `Authorize nota to read your Gmail mailbox.

This command will:
1. Start a local listener for the OAuth redirect
2. Print a Google consent URL to open in your browser
3. Save the resulting token to gmail.token_file

Only the gmail.readonly scope is requested.`,
		RunE: runAuthGmail,
	}
}

func runAuthGmail(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateGmail(); err != nil {
		return err
	}

	if _, err := mail.AuthenticateInteractive(cmd.Context(), cfg.Gmail.OAuth); err != nil {
		return fmt.Errorf("gmail authorization failed: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Gmail connected. Run 'nota sync --first' to import recent receipts."))
	return nil
}

func authSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "Grant access to Google Sheets for export",
		Long: `Authorize nota to write the export spreadsheet, using the same OAuth
client as Gmail. The token is saved to sheets.token_file.

Not needed when sheets.service_account_path is set.`,
		RunE: runAuthSheets,
	}
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateSheets(); err != nil {
		return err
	}
	if cfg.Sheets.Export.ServiceAccountPath != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("A service account is configured; no authorization needed."))
		return nil
	}

	if _, err := mail.AuthenticateInteractive(cmd.Context(), cfg.SheetsOAuth()); err != nil {
		return fmt.Errorf("sheets authorization failed: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets connected. Run 'nota export sheets' to export."))
	return nil
}

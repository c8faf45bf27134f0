package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/pipeline"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction by hand",
		Long: `Record a purchase that has no usable receipt, or one whose NFC-e page
could not be read.

Items use "description;quantity;price", e.g. --item "Pão francês;6;4,80".
Amounts accept "1.234,56", "R$ 10" and "12.5".`,
		Example: `  nota add --merchant "Padaria Pão Quente" --total 8,50 --date 21/01/2026
  nota add --merchant Farmácia --total "R$ 32,90" --payment pix --item "Dipirona;1;32,90"`,
		Args: cobra.NoArgs,
		RunE: runAdd,
	}

	cmd.Flags().String("merchant", "", "Merchant name (required)")
	cmd.Flags().String("total", "", "Total paid (required)")
	cmd.Flags().String("date", "", "Purchase date, YYYY-MM-DD or DD/MM/YYYY (default: today)")
	cmd.Flags().String("time", "", "Purchase time, HH:MM")
	cmd.Flags().String("payment", "", "Payment method, e.g. pix, crédito, dinheiro")
	cmd.Flags().String("category", "", "Category, e.g. Mercado, Saúde")
	cmd.Flags().StringArray("item", nil, `Line item as "description;quantity;price" (repeatable)`)

	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	entry := pipeline.ManualEntry{}
	entry.Merchant, _ = cmd.Flags().GetString("merchant")
	entry.Total, _ = cmd.Flags().GetString("total")
	entry.Date, _ = cmd.Flags().GetString("date")
	entry.Time, _ = cmd.Flags().GetString("time")
	entry.PaymentMethod, _ = cmd.Flags().GetString("payment")
	entry.Category, _ = cmd.Flags().GetString("category")

	rawItems, _ := cmd.Flags().GetStringArray("item")
	for _, raw := range rawItems {
		item, err := parseItem(raw)
		if err != nil {
			return err
		}
		entry.Items = append(entry.Items, item)
	}

	if err := cfg.ValidateUser(); err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := pipeline.NewManual(store, slog.Default()).Add(ctx, cfg.User.ID, entry)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.RenderTransaction(txn))
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Transaction saved"))
	return nil
}

// parseItem reads "description;quantity;price". Quantity and price may be left
// out; a missing quantity means one unit.
func parseItem(raw string) (pipeline.ManualItem, error) {
	parts := strings.Split(raw, ";")
	if len(parts) > 3 || strings.TrimSpace(parts[0]) == "" {
		return pipeline.ManualItem{}, common.NewUserError(
			fmt.Sprintf("invalid item %q, use \"description;quantity;price\"", raw), pipeline.ErrRejected)
	}

	item := pipeline.ManualItem{Description: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		item.Quantity = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		item.Price = strings.TrimSpace(parts[2])
	}
	return item, nil
}

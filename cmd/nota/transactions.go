package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/normalize"
	"github.com/Veraticus/nota-flow/internal/pipeline"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List, inspect, correct and delete stored transactions",
	}

	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsShowCmd())
	cmd.AddCommand(transactionsEditCmd())
	cmd.AddCommand(transactionsDeleteCmd())

	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runTransactionsList,
	}

	cmd.Flags().String("from", "", "Only transactions on or after this date")
	cmd.Flags().String("to", "", "Only transactions on or before this date")
	cmd.Flags().String("origin", "", "Only transactions from this origin (email, scanned-image, scraped-html, manual)")
	cmd.Flags().IntP("limit", "n", 50, "Maximum rows to show (0 for all)")
	cmd.Flags().Int("offset", 0, "Rows to skip")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := listFilter(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateUser(); err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.ListTransactions(ctx, cfg.User.ID, filter)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTransactionTable(txns))
	return nil
}

func listFilter(cmd *cobra.Command) (model.TransactionFilter, error) {
	var filter model.TransactionFilter
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	origin, _ := cmd.Flags().GetString("origin")

	var err error
	if filter.StartDate, err = flagDate("from", from); err != nil {
		return filter, err
	}
	if filter.EndDate, err = flagDate("to", to); err != nil {
		return filter, err
	}
	if origin != "" {
		filter.Origin = model.Origin(origin)
		if !filter.Origin.Valid() {
			return filter, common.NewUserError(fmt.Sprintf("unknown origin %q", origin), pipeline.ErrRejected)
		}
	}
	return filter, nil
}

func transactionsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction and its items",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransactionsShow,
	}

	cmd.Flags().Bool("json", false, "Print the canonical JSON document")

	return cmd
}

func runTransactionsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")

	if err := cfg.ValidateUser(); err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := store.GetTransaction(ctx, cfg.User.ID, args[0])
	if err != nil {
		return notFound(args[0], err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(txn.Canonical())
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTransaction(txn))
	return nil
}

func transactionsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct the merchant, date or total of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransactionsEdit,
	}

	cmd.Flags().String("merchant", "", "New merchant name")
	cmd.Flags().String("date", "", "New date, YYYY-MM-DD or DD/MM/YYYY")
	cmd.Flags().String("total", "", "New total")

	return cmd
}

func runTransactionsEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	update, err := editUpdate(cmd)
	if err != nil {
		return err
	}
	if update.IsEmpty() {
		return common.NewUserError("nothing to change, pass --merchant, --date or --total", pipeline.ErrRejected)
	}
	if err := cfg.ValidateUser(); err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.UpdateTransaction(ctx, cfg.User.ID, args[0], update); err != nil {
		if errors.Is(err, model.ErrInvalidTransaction) {
			return common.NewUserError("the change was not saved: "+err.Error(), err)
		}
		return notFound(args[0], err)
	}

	txn, err := store.GetTransaction(ctx, cfg.User.ID, args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTransaction(txn))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Transaction updated"))
	return nil
}

// editUpdate builds an update from the flags that were set. Values go through the
// same parsing imports use.
func editUpdate(cmd *cobra.Command) (model.TransactionUpdate, error) {
	var update model.TransactionUpdate

	if cmd.Flags().Changed("merchant") {
		merchant, _ := cmd.Flags().GetString("merchant")
		merchant = normalize.CleanText(merchant)
		if merchant == "" {
			return update, common.NewUserError("merchant cannot be empty", pipeline.ErrRejected)
		}
		update.MerchantName = &merchant
	}

	if cmd.Flags().Changed("date") {
		raw, _ := cmd.Flags().GetString("date")
		date, err := flagDate("date", raw)
		if err != nil {
			return update, err
		}
		if date == nil {
			return update, common.NewUserError("date cannot be empty", pipeline.ErrRejected)
		}
		update.OccurredOn = date
	}

	if cmd.Flags().Changed("total") {
		raw, _ := cmd.Flags().GetString("total")
		total, ok := normalize.ParseMoney(raw)
		if !ok || total.IsNegative() {
			return update, common.NewUserError(fmt.Sprintf("invalid total %q", raw), pipeline.ErrRejected)
		}
		update.TotalAmount = &total
	}

	return update, nil
}

func transactionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and its items",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransactionsDelete,
	}

	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runTransactionsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")

	if err := cfg.ValidateUser(); err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := store.GetTransaction(ctx, cfg.User.ID, args[0])
	if err != nil {
		return notFound(args[0], err)
	}

	out := cmd.OutOrStdout()
	if !yes {
		_, _ = fmt.Fprintln(out, cli.RenderTransaction(txn))
		reader := cli.NewNonBlockingReader(os.Stdin)
		ok, err := cli.Confirm(ctx, reader, out, "Delete this transaction?")
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(out, cli.FormatInfo("Nothing deleted"))
			return nil
		}
	}

	if err := store.DeleteTransaction(ctx, cfg.User.ID, txn.ID); err != nil {
		return notFound(txn.ID, err)
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Transaction deleted"))
	return nil
}

// flagDate parses an optional date flag into YYYY-MM-DD.
func flagDate(name, raw string) (*string, error) {
	if raw == "" {
		return nil, nil
	}
	date, ok := normalize.ParseDateString(raw)
	if !ok {
		return nil, common.NewUserError(fmt.Sprintf("invalid --%s %q, use YYYY-MM-DD or DD/MM/YYYY", name, raw), pipeline.ErrRejected)
	}
	return &date, nil
}

func notFound(id string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("no transaction with id %s", id), err)
	}
	return err
}

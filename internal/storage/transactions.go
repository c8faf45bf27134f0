package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
)

const transactionColumns = `id, user_id, merchant_name, tax_id, address, city, state,
	occurred_on, occurred_at, total_amount, subtotal_amount, discount_amount,
	payment_method, category, document_number, access_key, source_external_id,
	origin, created_at`

// InsertTransaction stores txn and returns its id. A transaction whose
// (user, source external id) is already stored yields common.ErrDuplicateEntry.
func (s *SQLStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	return s.insertTransactionTx(ctx, s.db, txn)
}

func (s *SQLStorage) insertTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) (string, error) {
	if err := txn.Validate(); err != nil {
		return "", err
	}
	if txn.ID == "" {
		txn.ID = s.newID()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = s.now().UTC()
	}

	res, err := q.ExecContext(ctx, s.rebind(`
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		txn.ID, txn.UserID, txn.MerchantName,
		nullString(txn.TaxID), nullString(txn.Address), nullString(txn.City), nullString(txn.State),
		nullString(txn.OccurredOn), nullString(txn.OccurredAt),
		txn.TotalAmount, txn.SubtotalAmount, txn.DiscountAmount,
		nullString(txn.PaymentMethod), nullString(txn.Category), nullString(txn.DocumentNumber),
		nullString(txn.AccessKey), nullString(txn.SourceExternalID),
		string(txn.Origin), txn.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert transaction: %w", mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("transaction for source %s: %w", deref(txn.SourceExternalID), common.ErrDuplicateEntry)
	}
	return txn.ID, nil
}

// InsertLineItems stores items under an existing transaction, in order.
func (s *SQLStorage) InsertLineItems(ctx context.Context, transactionID string, items []model.LineItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	_, err := withTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, s.insertLineItemsTx(ctx, tx, transactionID, items)
	})
	return err
}

func (s *SQLStorage) insertLineItemsTx(ctx context.Context, q queryable, transactionID string, items []model.LineItem) error {
	query := s.rebind(`
		INSERT INTO line_items (id, transaction_id, position, description, quantity, unit, unit_price, total_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	for i := range items {
		item := &items[i]
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d has no description", model.ErrInvalidTransaction, i)
		}
		if item.ID == "" {
			item.ID = s.newID()
		}
		item.TransactionID = transactionID

		if _, err := q.ExecContext(ctx, query,
			item.ID, transactionID, i, item.Description, item.Quantity,
			nullString(item.Unit), item.UnitPrice, item.TotalPrice,
		); err != nil {
			return fmt.Errorf("failed to insert line item %d: %w", i, mapError(err))
		}
	}
	return nil
}

// SaveTransaction stores a transaction and its items atomically.
func (s *SQLStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if txn == nil {
		return "", fmt.Errorf("%w: transaction", ErrNilParameter)
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) (string, error) {
		id, err := s.insertTransactionTx(ctx, tx, txn)
		if err != nil {
			return "", err
		}
		if err := s.insertLineItemsTx(ctx, tx, id, txn.Items); err != nil {
			return "", err
		}
		return id, nil
	})
}

// FindBySourceExternalID reports whether the user already imported a source.
func (s *SQLStorage) FindBySourceExternalID(ctx context.Context, userID, externalID string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}

	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id FROM transactions WHERE user_id = ? AND source_external_id = ?`),
		userID, externalID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up source %s: %w", externalID, err)
	}
	return id, true, nil
}

// GetTransaction returns one of the user's transactions with its items.
func (s *SQLStorage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`),
		userID, id,
	)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, mapError(err))
	}

	items, err := s.lineItems(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	txn.Items = items
	return txn, nil
}

func (s *SQLStorage) lineItems(ctx context.Context, transactionID string) ([]model.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, transaction_id, description, quantity, unit, unit_price, total_price
		FROM line_items WHERE transaction_id = ? ORDER BY position`),
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]model.LineItem, 0)
	for rows.Next() {
		var item model.LineItem
		var unit sql.NullString
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.Description, &item.Quantity, &unit, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		item.Unit = stringPtr(unit)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListTransactions returns the user's transactions, newest first, without items.
func (s *SQLStorage) ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	where := []string{"user_id = ?"}
	args := []any{userID}
	if filter.StartDate != nil {
		where = append(where, "occurred_on >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where = append(where, "occurred_on <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Origin != "" {
		where = append(where, "origin = ?")
		args = append(args, string(filter.Origin))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY COALESCE(occurred_on, '') DESC, created_at DESC`
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txns := make([]model.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// CountTransactions returns how many transactions the user has.
func (s *SQLStorage) CountTransactions(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM transactions WHERE user_id = ?`), userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// UpdateTransaction applies user edits to merchant, date or total.
func (s *SQLStorage) UpdateTransaction(ctx context.Context, userID, id string, update model.TransactionUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if update.IsEmpty() {
		return nil
	}
	if err := validateUpdate(update); err != nil {
		return err
	}

	var sets []string
	var args []any
	if update.MerchantName != nil {
		sets = append(sets, "merchant_name = ?")
		args = append(args, strings.TrimSpace(*update.MerchantName))
	}
	if update.OccurredOn != nil {
		sets = append(sets, "occurred_on = ?")
		args = append(args, *update.OccurredOn)
	}
	if update.TotalAmount != nil {
		sets = append(sets, "total_amount = ?")
		args = append(args, *update.TotalAmount)
	}
	args = append(args, userID, id)

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`), args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, mapError(err))
	}
	return requireRow(res, id)
}

// DeleteTransaction removes a transaction and its items.
func (s *SQLStorage) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := withTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM line_items WHERE transaction_id IN (SELECT id FROM transactions WHERE user_id = ? AND id = ?)`),
			userID, id,
		); err != nil {
			return struct{}{}, fmt.Errorf("failed to delete line items: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM transactions WHERE user_id = ? AND id = ?`), userID, id)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to delete transaction %s: %w", id, err)
		}
		return struct{}{}, requireRow(res, id)
	})
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn                                         model.Transaction
		taxID, address, city, state, occurredOn     sql.NullString
		occurredAt, payment, category, docNum, akey sql.NullString
		sourceID                                    sql.NullString
		origin                                      string
	)

	if err := row.Scan(
		&txn.ID, &txn.UserID, &txn.MerchantName, &taxID, &address, &city, &state,
		&occurredOn, &occurredAt, &txn.TotalAmount, &txn.SubtotalAmount, &txn.DiscountAmount,
		&payment, &category, &docNum, &akey, &sourceID,
		&origin, &txn.CreatedAt,
	); err != nil {
		return nil, err
	}

	txn.TaxID = stringPtr(taxID)
	txn.Address = stringPtr(address)
	txn.City = stringPtr(city)
	txn.State = stringPtr(state)
	txn.OccurredOn = stringPtr(occurredOn)
	txn.OccurredAt = stringPtr(occurredAt)
	txn.PaymentMethod = stringPtr(payment)
	txn.Category = stringPtr(category)
	txn.DocumentNumber = stringPtr(docNum)
	txn.AccessKey = stringPtr(akey)
	txn.SourceExternalID = stringPtr(sourceID)
	txn.Origin = model.Origin(origin)
	return &txn, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/service"
)

const currencyPattern = `"R$ "#,##0.00`

var detailHeader = []any{"Date", "Time", "Merchant", "Amount", "Category", "Payment", "CNPJ", "Origin", "ID"}

// Writer exports transactions to a single spreadsheet tab, replacing its contents.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// report is the sheet contents plus the row spans formatting needs.
type report struct {
	values        [][]any
	categoryStart int // first category row, 0-based
	categoryEnd   int // one past the last category row
	detailStart   int // first transaction row
}

// NewWriter creates a Google Sheets writer. Authentication comes from the service
// account in config when set, otherwise from ts. Extra client options are passed
// through, which tests use to point at a fake server.
func NewWriter(ctx context.Context, config Config, ts oauth2.TokenSource, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config, ts, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  common.OrDefault(logger),
	}, nil
}

// Write replaces the sheet contents with a summary and one row per transaction. It
// returns the id of the spreadsheet written, which is new when none was configured.
func (w *Writer) Write(ctx context.Context, txns []model.Transaction, rng DateRange) (string, error) {
	w.logger.Info("Starting spreadsheet export",
		"transactions", len(txns),
		"date_range", rng.Label())

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return spreadsheetID, fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	rep := prepareReport(txns, Summarize(txns, rng))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, rep.values)
	}, retryOpts)
	if err != nil {
		return spreadsheetID, fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, rep)
		}, retryOpts)
		if err != nil {
			// The data is written; formatting is cosmetic.
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Spreadsheet export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(rep.values))

	return spreadsheetID, nil
}

func createSheetsService(ctx context.Context, config Config, ts oauth2.TokenSource, opts []option.ClientOption) (*sheets.Service, error) {
	switch {
	case config.ServiceAccountPath != "":
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		opts = append([]option.ClientOption{option.WithTokenSource(jwtConfig.TokenSource(ctx))}, opts...)
	case ts != nil:
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	case len(opts) == 0:
		return nil, errors.New("no authentication method configured")
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
			Locale:   "pt_BR",
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Transactions",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("Created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReport lays out the summary, the category breakdown and the transaction
// rows, newest first. Transactions without a date sort last.
func prepareReport(txns []model.Transaction, summary Summary) report {
	values := make([][]any, 0, 12+len(summary.ByCategory)+len(txns))

	values = append(values,
		[]any{"Nota Receipts", summary.Range.Label()},
		[]any{},
		[]any{"Summary"},
		[]any{"Total Amount", summary.Total.InexactFloat64()},
		[]any{"Total Transactions", summary.Count},
		[]any{},
		[]any{"Category Breakdown"},
		[]any{"Category", "Count", "Amount"},
	)

	rep := report{categoryStart: len(values)}
	for _, cat := range summary.ByCategory {
		values = append(values, []any{cat.Name, cat.Count, cat.Amount.InexactFloat64()})
	}
	rep.categoryEnd = len(values)

	values = append(values,
		[]any{},
		[]any{},
		[]any{"Transaction Details"},
		detailHeader,
	)
	rep.detailStart = len(values)

	sorted := make([]model.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := deref(sorted[i].OccurredOn), deref(sorted[j].OccurredOn)
		if di != dj {
			return di > dj
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	for _, txn := range sorted {
		values = append(values, []any{
			deref(txn.OccurredOn),
			deref(txn.OccurredAt),
			txn.MerchantName,
			txn.TotalAmount.InexactFloat64(),
			deref(txn.Category),
			deref(txn.PaymentMethod),
			deref(txn.TaxID),
			string(txn.Origin),
			txn.ID,
		})
	}

	rep.values = values
	return rep
}

// writeData writes the rows in batches to stay under the API request size limit.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("Wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, rep report) error {
	total := int64(len(rep.values))
	requests := []*sheets.Request{
		textFormat(0, 1, 0, 2, &sheets.TextFormat{Bold: true, FontSize: 16}),
		textFormat(2, total, 0, 1, &sheets.TextFormat{Bold: true}),
		currencyFormat(3, 4, 1, 2),
		currencyFormat(int64(rep.categoryStart), int64(rep.categoryEnd), 2, 3),
		currencyFormat(int64(rep.detailStart), total, 3, 4),
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(detailHeader)),
				},
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}

func textFormat(startRow, endRow, startCol, endCol int64, format *sheets.TextFormat) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          0,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{TextFormat: format},
			},
			Fields: "userEnteredFormat.textFormat",
		},
	}
}

func currencyFormat(startRow, endRow, startCol, endCol int64) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          0,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{
						Type:    "CURRENCY",
						Pattern: currencyPattern,
					},
				},
			},
			Fields: "userEnteredFormat.numberFormat",
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/Veraticus/nota-flow/internal/model"
)

func ptr(s string) *string { return &s }

func testTransactions() []model.Transaction {
	created := time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC)
	return []model.Transaction{
		{
			ID:           "t-old",
			MerchantName: "Farmácia Popular",
			OccurredOn:   ptr("2026-01-10"),
			TotalAmount:  decimal.RequireFromString("32.90"),
			Category:     ptr("Saúde"),
			Origin:       model.OriginScannedImage,
			CreatedAt:    created,
		},
		{
			ID:           "t-new",
			MerchantName: "Supermercado X",
			OccurredOn:   ptr("2026-01-20"),
			OccurredAt:   ptr("14:32:00"),
			TotalAmount:  decimal.RequireFromString("87.50"),
			Category:     ptr("Mercado"),
			TaxID:        ptr("12.345.678/0001-90"),
			Origin:       model.OriginEmail,
			CreatedAt:    created,
		},
		{
			ID:           "t-undated",
			MerchantName: "Padaria",
			TotalAmount:  decimal.RequireFromString("8.50"),
			Origin:       model.OriginManual,
			CreatedAt:    created,
		},
		{
			ID:           "t-mid",
			MerchantName: "Mercado Central",
			OccurredOn:   ptr("2026-01-15"),
			TotalAmount:  decimal.RequireFromString("12.60"),
			Category:     ptr("Mercado"),
			Origin:       model.OriginScrapedHTML,
			CreatedAt:    created,
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testTransactions(), DateRange{Start: "2026-01-01"})

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, "141.5", s.Total.String())
	require.Len(t, s.ByCategory, 3)
	assert.Equal(t, "Mercado", s.ByCategory[0].Name)
	assert.Equal(t, 2, s.ByCategory[0].Count)
	assert.Equal(t, "100.1", s.ByCategory[0].Amount.String())
	assert.Equal(t, "Saúde", s.ByCategory[1].Name)
	assert.Equal(t, Uncategorized, s.ByCategory[2].Name)
}

func TestPrepareReport(t *testing.T) {
	txns := testTransactions()
	rep := prepareReport(txns, Summarize(txns, DateRange{}))

	assert.Equal(t, []any{"Nota Receipts", "All dates"}, rep.values[0])
	assert.Equal(t, []any{"Total Amount", 141.5}, rep.values[3])
	assert.Equal(t, []any{"Total Transactions", 4}, rep.values[4])

	assert.Equal(t, 8, rep.categoryStart)
	assert.Equal(t, 11, rep.categoryEnd)
	assert.Equal(t, []any{"Mercado", 2, 100.1}, rep.values[rep.categoryStart])

	assert.Equal(t, detailHeader, rep.values[rep.detailStart-1])
	require.Len(t, rep.values, rep.detailStart+4)

	var order []any
	for _, row := range rep.values[rep.detailStart:] {
		order = append(order, row[8])
	}
	assert.Equal(t, []any{"t-new", "t-mid", "t-old", "t-undated"}, order)
	assert.Equal(t, []any{"2026-01-20", "14:32:00", "Supermercado X", 87.5, "Mercado", "", "12.345.678/0001-90", "email", "t-new"},
		rep.values[rep.detailStart])

	assert.Equal(t, "t-old", txns[0].ID, "input order is left alone")
}

// fakeSheets records the calls the writer makes.
type fakeSheets struct {
	calls   []string
	written [][]any
	mu      sync.Mutex
}

func (f *fakeSheets) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(path, "/v4/spreadsheets"):
			f.calls = append(f.calls, "create")
			_, _ = w.Write([]byte(`{"spreadsheetId":"new-sheet","spreadsheetUrl":"https://example.test/new-sheet"}`))
		case r.Method == http.MethodGet:
			f.calls = append(f.calls, "get")
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		case strings.HasSuffix(path, ":clear"):
			f.calls = append(f.calls, "clear")
			_, _ = w.Write([]byte(`{}`))
		case strings.HasSuffix(path, ":batchUpdate"):
			f.calls = append(f.calls, "format")
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPut:
			f.calls = append(f.calls, "update")
			assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
			var body struct {
				Values [][]any `json:"values"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.written = append(f.written, body.Values...)
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			http.Error(w, "not found", http.StatusNotFound)
		}
	}
}

func newTestWriter(t *testing.T, cfg Config) (*Writer, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	w, err := NewWriter(context.Background(), cfg, nil, nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return w, fake
}

func TestWriterWritesExistingSpreadsheet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.BatchSize = 5
	w, fake := newTestWriter(t, cfg)

	txns := testTransactions()
	id, err := w.Write(context.Background(), txns, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)

	rows := len(prepareReport(txns, Summarize(txns, DateRange{})).values)
	updates := (rows + cfg.BatchSize - 1) / cfg.BatchSize
	expected := []string{"get", "clear"}
	for range updates {
		expected = append(expected, "update")
	}
	expected = append(expected, "format")
	assert.Equal(t, expected, fake.calls)
	require.Len(t, fake.written, rows)
	assert.Equal(t, "Nota Receipts", fake.written[0][0])
}

func TestWriterCreatesSpreadsheet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableFormatting = false
	w, fake := newTestWriter(t, cfg)

	id, err := w.Write(context.Background(), nil, DateRange{End: "2026-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)
	assert.Equal(t, []string{"create", "clear", "update"}, fake.calls)
	assert.Equal(t, []any{"Nota Receipts", "Until 2026-01-31"}, fake.written[0])
}

func TestNewWriterRequiresAuthentication(t *testing.T) {
	_, err := NewWriter(context.Background(), DefaultConfig(), nil, nil)
	assert.ErrorContains(t, err, "no authentication method configured")

	cfg := DefaultConfig()
	cfg.BatchSize = 0
	_, err = NewWriter(context.Background(), cfg, nil, nil)
	assert.ErrorContains(t, err, "invalid config")
}

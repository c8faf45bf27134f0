package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/pipeline"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		raw     string
		want    pipeline.ManualItem
		wantErr bool
	}{
		{raw: "Pão francês;6;4,80", want: pipeline.ManualItem{Description: "Pão francês", Quantity: "6", Price: "4,80"}},
		{raw: " Café ; ; 12,90 ", want: pipeline.ManualItem{Description: "Café", Price: "12,90"}},
		{raw: "Leite", want: pipeline.ManualItem{Description: "Leite"}},
		{raw: ";1;2", wantErr: true},
		{raw: "a;1;2;3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseItem(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, pipeline.ErrRejected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditUpdate(t *testing.T) {
	cmd := transactionsEditCmd()
	require.NoError(t, cmd.Flags().Set("merchant", "  Mercado   Central "))
	require.NoError(t, cmd.Flags().Set("date", "05/02/2026"))
	require.NoError(t, cmd.Flags().Set("total", "R$ 1.234,56"))

	update, err := editUpdate(cmd)
	require.NoError(t, err)
	require.NotNil(t, update.MerchantName)
	assert.Equal(t, "Mercado Central", *update.MerchantName)
	require.NotNil(t, update.OccurredOn)
	assert.Equal(t, "2026-02-05", *update.OccurredOn)
	require.NotNil(t, update.TotalAmount)
	assert.Equal(t, "1234.56", update.TotalAmount.StringFixed(2))

	update, err = editUpdate(transactionsEditCmd())
	require.NoError(t, err)
	assert.True(t, update.IsEmpty())
}

func TestEditUpdateRejectsBadValues(t *testing.T) {
	tests := []struct {
		flag  string
		value string
	}{
		{"merchant", "   "},
		{"date", "31/02/2026"},
		{"date", ""},
		{"total", "abc"},
		{"total", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.flag+"="+tt.value, func(t *testing.T) {
			cmd := transactionsEditCmd()
			require.NoError(t, cmd.Flags().Set(tt.flag, tt.value))
			_, err := editUpdate(cmd)
			assert.ErrorIs(t, err, pipeline.ErrRejected)
		})
	}
}

func TestListFilter(t *testing.T) {
	cmd := transactionsListCmd()
	require.NoError(t, cmd.Flags().Set("from", "2026-01-01"))
	require.NoError(t, cmd.Flags().Set("to", "31/01/2026"))
	require.NoError(t, cmd.Flags().Set("origin", "scraped-html"))

	filter, err := listFilter(cmd)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", *filter.StartDate)
	assert.Equal(t, "2026-01-31", *filter.EndDate)
	assert.Equal(t, model.OriginScrapedHTML, filter.Origin)
	assert.Equal(t, 50, filter.Limit)

	cmd = transactionsListCmd()
	require.NoError(t, cmd.Flags().Set("from", "janeiro"))
	_, err = listFilter(cmd)
	assert.ErrorIs(t, err, pipeline.ErrRejected)
}

package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/model"
)

func TestNormalizeDate(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	late := time.Date(2026, 1, 21, 23, 30, 0, 0, brt)

	tests := []struct {
		fallback *time.Time
		want     *string
		name     string
		value    model.RawValue
	}{
		{name: "iso dash", value: model.StringValue("2026-01-21"), want: ptr("2026-01-21")},
		{name: "iso slash", value: model.StringValue("2026/1/5"), want: ptr("2026-01-05")},
		{name: "brazilian slash", value: model.StringValue("21/01/2026"), want: ptr("2026-01-21")},
		{name: "brazilian dash", value: model.StringValue("21-01-2026"), want: ptr("2026-01-21")},
		{name: "embedded", value: model.StringValue("Emissão: 21/01/2026 14:32"), want: ptr("2026-01-21")},
		{name: "iso timestamp", value: model.StringValue("2026-01-21T10:00:00Z"), want: ptr("2026-01-21")},
		{name: "native time", value: model.TimeValue(late), want: ptr("2026-01-21")},
		{name: "impossible date uses fallback", value: model.StringValue("31/02/2026"), fallback: &late, want: ptr("2026-01-21")},
		{name: "garbage uses fallback", value: model.StringValue("ontem"), fallback: &late, want: ptr("2026-01-21")},
		{name: "null uses fallback", value: model.RawValue{}, fallback: &late, want: ptr("2026-01-21")},
		{name: "nothing resolves", value: model.StringValue("ontem")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDate(tt.value, tt.fallback)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNormalizeDateFallbackKeepsMessageOffset(t *testing.T) {
	// 23:30 in São Paulo is already the next day in UTC.
	brt := time.FixedZone("BRT", -3*60*60)
	late := time.Date(2026, 1, 21, 23, 30, 0, 0, brt)

	got := NormalizeDate(model.RawValue{}, &late)
	require.NotNil(t, got)
	assert.Equal(t, "2026-01-21", *got)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"14:32", "14:32:00"},
		{"9:05", "09:05:00"},
		{"14:32:10", "14:32:10"},
		{"14h32", "14:32:00"},
		{"às 08:15", "08:15:00"},
		{"25:00", ""},
		{"12:61", ""},
		{"meio-dia", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeTime(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

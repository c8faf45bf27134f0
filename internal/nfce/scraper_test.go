package nfce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestScraperFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	s := NewScraper(ScraperConfig{}, nil)
	res := s.Fetch(context.Background(), srv.URL)

	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.True(t, res.Scraped)
	assert.Equal(t, srv.URL, res.URL)
	assert.Equal(t, "SUPERMERCADO X LTDA", res.MerchantName)
}

func TestScraperFetchLatin1(t *testing.T) {
	page, err := charmap.ISO8859_1.NewEncoder().String(`<h1>Açougue São João</h1><p>Valor total R$ 10,00</p>`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	res := NewScraper(ScraperConfig{}, nil).Fetch(context.Background(), srv.URL)
	assert.Equal(t, "Açougue São João", res.MerchantName)
	assert.Equal(t, "10,00", res.TotalAmount)
}

func TestScraperFetchNeverFails(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer srv.Close()

		res := NewScraper(ScraperConfig{}, nil).Fetch(context.Background(), srv.URL)
		assert.False(t, res.Scraped)
		assert.Equal(t, ManualEntryMessage, res.Message)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)

		s := NewScraper(ScraperConfig{Timeout: 50 * time.Millisecond}, nil)
		start := time.Now()
		res := s.Fetch(context.Background(), srv.URL)

		assert.Less(t, time.Since(start), 5*time.Second)
		assert.False(t, res.Scraped)
		assert.Empty(t, res.MerchantName)
		assert.Empty(t, res.TotalAmount)
		assert.Equal(t, ManualEntryMessage, res.Message)
	})

	t.Run("unreachable", func(t *testing.T) {
		res := NewScraper(ScraperConfig{}, nil).Fetch(context.Background(), "http://127.0.0.1:1/nota")
		assert.False(t, res.Scraped)
		assert.Equal(t, ManualEntryMessage, res.Message)
	})
}

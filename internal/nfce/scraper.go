package nfce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/Veraticus/nota-flow/internal/common"
)

const (
	// DefaultTimeout bounds a single portal fetch.
	DefaultTimeout = 12 * time.Second
	// DefaultUserAgent mimics a desktop browser; several portals refuse bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	// ManualEntryMessage is shown whenever the page could not be read.
	ManualEntryMessage = "Não foi possível ler a nota automaticamente. Preencha os campos manualmente."

	maxPageBytes = 5 << 20
)

var errPageUnavailable = errors.New("NFC-e page unavailable")

// ScraperConfig configures a Scraper.
type ScraperConfig struct {
	HTTPClient *http.Client
	UserAgent  string
	Timeout    time.Duration
}

// Scraper fetches NFC-e portal pages.
type Scraper struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	timeout   time.Duration
}

// NewScraper creates a Scraper, filling unset options with defaults.
func NewScraper(cfg ScraperConfig, logger *slog.Logger) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Scraper{
		client:    cfg.HTTPClient,
		logger:    common.OrDefault(logger),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

// Fetch downloads and extracts a portal page. It never fails: transport errors,
// timeouts and non-2xx responses yield an empty Result carrying ManualEntryMessage.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) Result {
	page, err := s.download(ctx, pageURL)
	if err != nil {
		s.logger.Warn("NFC-e page unavailable", "url", pageURL, "error", err)
		return Result{URL: pageURL, Message: ManualEntryMessage}
	}

	res := Extract(page)
	res.URL = pageURL
	return res
}

func (s *Scraper) download(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("portal returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return decodePage(body, resp.Header.Get("Content-Type")), nil
}

// decodePage converts Latin-1 pages, still common on state portals, to UTF-8.
func decodePage(body []byte, contentType string) string {
	ct := strings.ToLower(contentType)
	latin := strings.Contains(ct, "iso-8859-1") || strings.Contains(ct, "windows-1252")
	if !latin && utf8.Valid(body) {
		return string(body)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "")
	}
	return string(decoded)
}

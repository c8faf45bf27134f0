package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/extract"
	"github.com/Veraticus/nota-flow/internal/mail"
	"github.com/Veraticus/nota-flow/internal/nfce"
	"github.com/Veraticus/nota-flow/internal/pipeline"
	"github.com/Veraticus/nota-flow/internal/sheets"
	"github.com/Veraticus/nota-flow/internal/storage"
)

const sheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the typed view of the viper settings.
type Config struct {
	Logging   LoggingConfig
	User      UserConfig
	Database  DatabaseConfig
	Extractor extract.Config
	Gmail     GmailConfig
	NFCe      NFCeConfig
	Sync      pipeline.SyncConfig
	Scan      ScanConfig
	Sheets    SheetsConfig
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// UserConfig identifies whose transactions the CLI reads and writes.
type UserConfig struct {
	ID string
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver   string
	Path     string
	Postgres storage.PostgresConfig
}

// GmailConfig holds the mailbox OAuth client and listing limits.
type GmailConfig struct {
	OAuth    mail.OAuth2Config
	PageSize int64
}

// NFCeConfig tunes the portal scraper.
type NFCeConfig struct {
	Portal    string
	UserAgent string
	Timeout   time.Duration
}

// SheetsConfig holds the spreadsheet export target. Without a service account the
// export authorizes with the Gmail OAuth client and its own token file.
type SheetsConfig struct {
	Export    sheets.Config
	TokenFile string
}

// ScanConfig holds the image scan quota.
type ScanConfig struct {
	QuotaPerHour int
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("user.id", "default")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "$HOME/.local/share/nota/nota.db")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "require")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.postgres.conn_timeout", 10*time.Second)

	v.SetDefault("extractor.provider", "openai")
	v.SetDefault("extractor.locale", "pt-BR")
	v.SetDefault("extractor.timeout", extract.DefaultTimeout)
	v.SetDefault("extractor.requests_per_minute", 20)
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("extractor.retry_delay", 2*time.Second)
	v.SetDefault("extractor.temperature", 0.0)
	v.SetDefault("extractor.max_tokens", 2048)

	v.SetDefault("gmail.token_file", "$HOME/.config/nota/gmail-token.json")
	v.SetDefault("gmail.callback_addr", "localhost:8080")
	v.SetDefault("gmail.page_size", 50)
	v.SetDefault("gmail.queries", pipeline.DefaultQueries)
	v.SetDefault("gmail.max_candidates", pipeline.DefaultMaxCandidates)
	v.SetDefault("gmail.first_sync_days", pipeline.DefaultFirstSyncDays)

	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("scan.quota_per_hour", pipeline.DefaultScanQuota)

	v.SetDefault("nfce.timeout", nfce.DefaultTimeout)

	sheetDefaults := sheets.DefaultConfig()
	v.SetDefault("sheets.token_file", "$HOME/.config/nota/sheets-token.json")
	v.SetDefault("sheets.spreadsheet_name", sheetDefaults.SpreadsheetName)
	v.SetDefault("sheets.timezone", sheetDefaults.TimeZone)
	v.SetDefault("sheets.batch_size", sheetDefaults.BatchSize)
	v.SetDefault("sheets.retry_attempts", sheetDefaults.RetryAttempts)
	v.SetDefault("sheets.retry_delay", sheetDefaults.RetryDelay)
	v.SetDefault("sheets.formatting", sheetDefaults.EnableFormatting)
}

// Load reads every section from v. Paths are expanded and credentials fall back to
// the provider's conventional environment variables. Load does not validate; each
// command calls the Validate method for the sections it needs.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		User: UserConfig{ID: strings.TrimSpace(v.GetString("user.id"))},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   ExpandPath(v.GetString("database.path")),
			Postgres: storage.PostgresConfig{
				Host:            v.GetString("database.postgres.host"),
				Port:            v.GetInt("database.postgres.port"),
				Name:            v.GetString("database.postgres.name"),
				User:            v.GetString("database.postgres.user"),
				Password:        v.GetString("database.postgres.password"),
				SSLMode:         v.GetString("database.postgres.ssl_mode"),
				MaxOpenConns:    v.GetInt("database.postgres.max_open_conns"),
				MaxIdleConns:    v.GetInt("database.postgres.max_idle_conns"),
				ConnMaxLifetime: v.GetDuration("database.postgres.conn_max_lifetime"),
				ConnTimeout:     v.GetDuration("database.postgres.conn_timeout"),
			},
		},
		Extractor: extract.Config{
			Provider:          strings.ToLower(v.GetString("extractor.provider")),
			APIKey:            v.GetString("extractor.api_key"),
			Model:             v.GetString("extractor.model"),
			BaseURL:           v.GetString("extractor.base_url"),
			LocaleHint:        v.GetString("extractor.locale"),
			Timeout:           v.GetDuration("extractor.timeout"),
			RequestsPerMinute: v.GetInt("extractor.requests_per_minute"),
			MaxRetries:        v.GetInt("extractor.max_retries"),
			RetryDelay:        v.GetDuration("extractor.retry_delay"),
			Temperature:       v.GetFloat64("extractor.temperature"),
			MaxTokens:         v.GetInt("extractor.max_tokens"),
		},
		Gmail: GmailConfig{
			OAuth: mail.OAuth2Config{
				ClientID:     v.GetString("gmail.client_id"),
				ClientSecret: v.GetString("gmail.client_secret"),
				TokenFile:    ExpandPath(v.GetString("gmail.token_file")),
				CallbackAddr: v.GetString("gmail.callback_addr"),
			},
			PageSize: v.GetInt64("gmail.page_size"),
		},
		Sync: pipeline.SyncConfig{
			Queries:       v.GetStringSlice("gmail.queries"),
			MaxCandidates: v.GetInt("gmail.max_candidates"),
			FirstSyncDays: v.GetInt("gmail.first_sync_days"),
			Concurrency:   v.GetInt("sync.concurrency"),
			LocaleHint:    v.GetString("extractor.locale"),
		},
		Scan: ScanConfig{QuotaPerHour: v.GetInt("scan.quota_per_hour")},
		NFCe: NFCeConfig{
			Portal:    v.GetString("nfce.portal"),
			UserAgent: v.GetString("nfce.user_agent"),
			Timeout:   v.GetDuration("nfce.timeout"),
		},
		Sheets: SheetsConfig{
			Export: sheets.Config{
				ServiceAccountPath: ExpandPath(v.GetString("sheets.service_account_path")),
				SpreadsheetID:      v.GetString("sheets.spreadsheet_id"),
				SpreadsheetName:    v.GetString("sheets.spreadsheet_name"),
				TimeZone:           v.GetString("sheets.timezone"),
				BatchSize:          v.GetInt("sheets.batch_size"),
				RetryAttempts:      v.GetInt("sheets.retry_attempts"),
				RetryDelay:         v.GetDuration("sheets.retry_delay"),
				EnableFormatting:   v.GetBool("sheets.formatting"),
			},
			TokenFile: ExpandPath(v.GetString("sheets.token_file")),
		},
	}

	applyEnvFallbacks(&c)

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return Config{}, common.InvalidConfig("logging.level", err.Error())
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return Config{}, common.InvalidConfig("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}

	return c, nil
}

// ValidateUser checks that a user id is configured.
func (c Config) ValidateUser() error {
	if c.User.ID == "" {
		return common.MissingConfig("user.id")
	}
	return nil
}

// ValidateDatabase checks the settings of the selected driver.
func (c Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return common.MissingConfig("database.path")
		}
	case DriverPostgres:
		pg := c.Database.Postgres
		switch {
		case pg.Host == "":
			return common.MissingConfig("database.postgres.host")
		case pg.Name == "":
			return common.MissingConfig("database.postgres.name")
		case pg.User == "":
			return common.MissingConfig("database.postgres.user")
		case pg.Port <= 0 || pg.Port > 65535:
			return common.InvalidConfig("database.postgres.port", fmt.Sprintf("%d is not a port", pg.Port))
		}
	case "":
		return common.MissingConfig("database.driver")
	default:
		return common.InvalidConfig("database.driver", fmt.Sprintf("unsupported driver %q", c.Database.Driver))
	}
	return nil
}

// ValidateExtractor checks the extractor provider and its credential.
func (c Config) ValidateExtractor() error {
	switch c.Extractor.Provider {
	case "openai", "anthropic", "gemini":
	case "":
		return common.MissingConfig("extractor.provider")
	default:
		return common.InvalidConfig("extractor.provider", fmt.Sprintf("unsupported provider %q", c.Extractor.Provider))
	}
	if c.Extractor.APIKey == "" {
		return common.MissingConfig("extractor.api_key")
	}
	if c.Extractor.Temperature < 0 || c.Extractor.Temperature > 2 {
		return common.InvalidConfig("extractor.temperature", "must be between 0 and 2")
	}
	return nil
}

// ValidateGmail checks the OAuth client used to read the mailbox.
func (c Config) ValidateGmail() error {
	switch {
	case c.Gmail.OAuth.ClientID == "":
		return common.MissingConfig("gmail.client_id")
	case c.Gmail.OAuth.ClientSecret == "":
		return common.MissingConfig("gmail.client_secret")
	case c.Gmail.OAuth.TokenFile == "":
		return common.MissingConfig("gmail.token_file")
	}
	if c.Sync.Concurrency < 1 {
		return common.InvalidConfig("sync.concurrency", "must be at least 1")
	}
	return nil
}

// ValidateSheets checks the export target and that some way to authorize exists.
func (c Config) ValidateSheets() error {
	if err := c.Sheets.Export.Validate(); err != nil {
		return common.InvalidConfig("sheets", err.Error())
	}
	if c.Sheets.Export.ServiceAccountPath != "" {
		return nil
	}
	switch {
	case c.Gmail.OAuth.ClientID == "":
		return common.MissingConfig("gmail.client_id")
	case c.Gmail.OAuth.ClientSecret == "":
		return common.MissingConfig("gmail.client_secret")
	case c.Sheets.TokenFile == "":
		return common.MissingConfig("sheets.token_file")
	}
	return nil
}

// SheetsOAuth is the OAuth client used to authorize spreadsheet access. It shares
// the Gmail client but keeps a separate token with the spreadsheets scope.
func (c Config) SheetsOAuth() mail.OAuth2Config {
	oauth := c.Gmail.OAuth
	oauth.TokenFile = c.Sheets.TokenFile
	oauth.Scopes = []string{sheetsScope}
	return oauth
}

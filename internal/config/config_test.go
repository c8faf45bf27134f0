package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/pipeline"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "PGPASSWORD",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", "/home/ana")

	c, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "console", c.Logging.Format)
	assert.Equal(t, "default", c.User.ID)
	assert.Equal(t, DriverSQLite, c.Database.Driver)
	assert.Equal(t, "/home/ana/.local/share/nota/nota.db", c.Database.Path)
	assert.Equal(t, 5432, c.Database.Postgres.Port)
	assert.Equal(t, "openai", c.Extractor.Provider)
	assert.Equal(t, "pt-BR", c.Extractor.LocaleHint)
	assert.Equal(t, 45*time.Second, c.Extractor.Timeout)
	assert.Equal(t, "/home/ana/.config/nota/gmail-token.json", c.Gmail.OAuth.TokenFile)
	assert.Equal(t, pipeline.DefaultQueries, c.Sync.Queries)
	assert.Equal(t, 50, c.Sync.MaxCandidates)
	assert.Equal(t, 30, c.Sync.FirstSyncDays)
	assert.Equal(t, 1, c.Sync.Concurrency)
	assert.Equal(t, "pt-BR", c.Sync.LocaleHint)
	assert.Equal(t, 10, c.Scan.QuotaPerHour)
	assert.Equal(t, 12*time.Second, c.NFCe.Timeout)
	assert.Equal(t, "/home/ana/.config/nota/sheets-token.json", c.Sheets.TokenFile)
	assert.Equal(t, "America/Sao_Paulo", c.Sheets.Export.TimeZone)
	assert.Equal(t, 1000, c.Sheets.Export.BatchSize)
	assert.True(t, c.Sheets.Export.EnableFormatting)
}

func TestLoadFromFile(t *testing.T) {
	clearCredentialEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
user:
  id: casal
database:
  driver: postgres
  postgres:
    host: db.example.supabase.co
    name: postgres
    user: nota
    password: secret
extractor:
  provider: gemini
  api_key: key-from-file
  timeout: 20s
gmail:
  client_id: cid
  client_secret: csecret
  queries: ["nota fiscal", "cupom"]
  max_candidates: 25
sync:
  concurrency: 2
scan:
  quota_per_hour: 3
nfce:
  portal: https://www.nfce.fazenda.sp.gov.br/qrcode
`), 0600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "casal", c.User.ID)
	assert.Equal(t, DriverPostgres, c.Database.Driver)
	assert.Equal(t, "db.example.supabase.co", c.Database.Postgres.Host)
	assert.Equal(t, "require", c.Database.Postgres.SSLMode)
	assert.Equal(t, "gemini", c.Extractor.Provider)
	assert.Equal(t, "key-from-file", c.Extractor.APIKey)
	assert.Equal(t, 20*time.Second, c.Extractor.Timeout)
	assert.Equal(t, []string{"nota fiscal", "cupom"}, c.Sync.Queries)
	assert.Equal(t, 25, c.Sync.MaxCandidates)
	assert.Equal(t, 2, c.Sync.Concurrency)
	assert.Equal(t, 3, c.Scan.QuotaPerHour)
	assert.Equal(t, "https://www.nfce.fazenda.sp.gov.br/qrcode", c.NFCe.Portal)

	assert.NoError(t, c.ValidateDatabase())
	assert.NoError(t, c.ValidateExtractor())
	assert.NoError(t, c.ValidateGmail())
	assert.NoError(t, c.ValidateUser())
}

func TestLoadEnvFallbacks(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")

	v := newViper()
	v.Set("extractor.provider", "Anthropic")
	v.Set("gmail.client_id", "configured-client")

	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Extractor.Provider)
	assert.Equal(t, "sk-ant", c.Extractor.APIKey)
	assert.Equal(t, "configured-client", c.Gmail.OAuth.ClientID, "configured values win over the environment")
	assert.Equal(t, "env-secret", c.Gmail.OAuth.ClientSecret)
}

func TestLoadGeminiKeyFallbackOrder(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	v := newViper()
	v.Set("extractor.provider", "gemini")
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "google-key", c.Extractor.APIKey)

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	c, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", c.Extractor.APIKey)
}

func TestLoadRejectsBadLogging(t *testing.T) {
	v := newViper()
	v.Set("logging.level", "loud")
	_, err := Load(v)
	assert.True(t, common.IsConfigError(err))

	v = newViper()
	v.Set("logging.format", "xml")
	_, err = Load(v)
	assert.True(t, common.IsConfigError(err))
}

func TestValidate(t *testing.T) {
	clearCredentialEnv(t)

	tests := []struct {
		name     string
		set      map[string]any
		validate func(Config) error
		setting  string
	}{
		{"missing api key", nil, Config.ValidateExtractor, "extractor.api_key"},
		{"unknown provider", map[string]any{"extractor.provider": "mistral"}, Config.ValidateExtractor, "extractor.provider"},
		{"temperature", map[string]any{"extractor.api_key": "k", "extractor.temperature": 3.5}, Config.ValidateExtractor, "extractor.temperature"},
		{"missing gmail client", nil, Config.ValidateGmail, "gmail.client_id"},
		{"missing gmail secret", map[string]any{"gmail.client_id": "id"}, Config.ValidateGmail, "gmail.client_secret"},
		{"bad concurrency", map[string]any{"gmail.client_id": "id", "gmail.client_secret": "s", "sync.concurrency": 0}, Config.ValidateGmail, "sync.concurrency"},
		{"empty sqlite path", map[string]any{"database.path": " "}, Config.ValidateDatabase, "database.path"},
		{"unknown driver", map[string]any{"database.driver": "mysql"}, Config.ValidateDatabase, "database.driver"},
		{"postgres host", map[string]any{"database.driver": "postgres"}, Config.ValidateDatabase, "database.postgres.host"},
		{"postgres port", map[string]any{
			"database.driver": "postgres", "database.postgres.host": "h", "database.postgres.name": "n",
			"database.postgres.user": "u", "database.postgres.port": 70000,
		}, Config.ValidateDatabase, "database.postgres.port"},
		{"missing user", map[string]any{"user.id": " "}, Config.ValidateUser, "user.id"},
		{"sheets without oauth", nil, Config.ValidateSheets, "gmail.client_id"},
		{"sheets batch size", map[string]any{"sheets.batch_size": 0}, Config.ValidateSheets, "sheets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			c, err := Load(v)
			require.NoError(t, err)

			err = tt.validate(c)
			var cfgErr *common.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.setting, cfgErr.Setting)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/ana")
	t.Setenv("NOTA_DATA", "/srv/nota")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", "/home/ana"},
		{"~/nota.db", "/home/ana/nota.db"},
		{"$NOTA_DATA/nota.db", "/srv/nota/nota.db"},
		{"/abs/path.db", "/abs/path.db"},
		{"~user/nota.db", "~user/nota.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}

func TestSheetsOAuth(t *testing.T) {
	clearCredentialEnv(t)
	v := newViper()
	v.Set("gmail.client_id", "id")
	v.Set("gmail.client_secret", "secret")
	v.Set("sheets.token_file", "/tmp/sheets.json")
	c, err := Load(v)
	require.NoError(t, err)

	require.NoError(t, c.ValidateSheets())
	oauth := c.SheetsOAuth()
	assert.Equal(t, "id", oauth.ClientID)
	assert.Equal(t, "/tmp/sheets.json", oauth.TokenFile)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/spreadsheets"}, oauth.Scopes)
	assert.Empty(t, c.Gmail.OAuth.Scopes, "the gmail client keeps its own scope")

	v.Set("gmail.client_id", "")
	v.Set("sheets.service_account_path", "/etc/nota/sa.json")
	c, err = Load(v)
	require.NoError(t, err)
	assert.NoError(t, c.ValidateSheets(), "a service account needs no oauth client")
}

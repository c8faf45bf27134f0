package config

import "os"

// providerKeyEnv lists the environment variables each extractor provider's own
// tooling reads, in order of preference.
var providerKeyEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// applyEnvFallbacks fills credentials left empty by viper from conventional
// environment variables. Precedence is:
// 1. Viper configuration (config file or NOTA_ env vars)
// 2. Direct environment variables (OPENAI_API_KEY, GOOGLE_CLIENT_ID, ...)
// 3. Empty, reported later by the Validate methods
func applyEnvFallbacks(c *Config) {
	if c.Extractor.APIKey == "" {
		c.Extractor.APIKey = firstEnv(providerKeyEnv[c.Extractor.Provider]...)
	}
	if c.Gmail.OAuth.ClientID == "" {
		c.Gmail.OAuth.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.Gmail.OAuth.ClientSecret == "" {
		c.Gmail.OAuth.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.Database.Postgres.Password == "" {
		c.Database.Postgres.Password = os.Getenv("PGPASSWORD")
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

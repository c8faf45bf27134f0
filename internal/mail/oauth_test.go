package mail

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, token))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTokenSourceReturnsValidToken(t *testing.T) {
	token := &oauth2.Token{AccessToken: "still-valid", Expiry: time.Now().Add(time.Hour)}
	ts := TokenSource(t.Context(), OAuth2Config{TokenFile: filepath.Join(t.TempDir(), "t.json")}, token)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "still-valid", got.AccessToken)
}

func TestOAuthConfigScopes(t *testing.T) {
	cfg := OAuth2Config{ClientID: "id", CallbackAddr: "127.0.0.1:9999"}.oauthConfig()
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.readonly"}, cfg.Scopes)
	assert.Equal(t, "http://127.0.0.1:9999/callback", cfg.RedirectURL)

	cfg = OAuth2Config{Scopes: []string{"https://www.googleapis.com/auth/spreadsheets"}}.oauthConfig()
	assert.Equal(t, []string{"https://www.googleapis.com/auth/spreadsheets"}, cfg.Scopes)
	assert.Equal(t, "http://localhost:8080/callback", cfg.RedirectURL)
}

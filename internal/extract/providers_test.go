package extract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/common"
)

func TestOpenAIProvider(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"total\": 1}"}}]}`))
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), Prompt{System: "s", User: "u", Image: []byte("img"), ImageMIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, `{"total": 1}`, out)

	messages := got["messages"].([]any)
	user := messages[1].(map[string]any)["content"].([]any)
	imagePart := user[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(imagePart["url"].(string), "data:image/png;base64,"))
}

func TestOpenAIProviderErrors(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"nope"}`, status)
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Prompt{User: "u"})
	require.Error(t, err)
	assert.False(t, common.IsRetryable(err))

	status = http.StatusTooManyRequests
	_, err = p.Complete(context.Background(), Prompt{User: "u"})
	assert.True(t, common.IsRetryable(err))
	assert.ErrorIs(t, err, common.ErrRateLimit)

	status = http.StatusBadGateway
	_, err = p.Complete(context.Background(), Prompt{User: "u"})
	assert.True(t, common.IsRetryable(err))
}

func TestAnthropicProvider(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"merchant_name\":"},{"type":"text","text":"\"Loja\"}"}]}`))
	}))
	defer srv.Close()

	p, err := newAnthropicProvider(Config{APIKey: "key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), Prompt{System: "sys", User: "u", Image: []byte("img"), ImageMIMEType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, `{"merchant_name":"Loja"}`, out)
	assert.Equal(t, "sys", got["system"])

	content := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
}

func TestGeminiProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"total\": \"5,00\"}"}]}}]}`))
	}))
	defer srv.Close()

	p, err := newGeminiProvider(context.Background(), Config{APIKey: "key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), Prompt{System: "sys", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, `{"total": "5,00"}`, out)
}

package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newFakeGmail(t *testing.T, handler http.HandlerFunc) *GmailSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewGmailSource(context.Background(), nil, GmailConfig{PageSize: 2, MaxPerQuery: 3}, nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return src
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGmailListCandidates(t *testing.T) {
	var queries []string
	src := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/gmail/v1/users/me/messages"), r.URL.Path)
		queries = append(queries, r.URL.Query().Get("q"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(t, w, map[string]any{
				"messages":      []map[string]string{{"id": "a", "threadId": "t1"}, {"id": "b", "threadId": "t2"}},
				"nextPageToken": "p2",
			})
		case "p2":
			writeJSON(t, w, map[string]any{
				"messages":      []map[string]string{{"id": "c"}, {"id": "d"}},
				"nextPageToken": "p3",
			})
		default:
			t.Fatalf("unexpected page %s", r.URL.Query().Get("pageToken"))
		}
	})

	got, err := src.ListCandidates(context.Background(), "nota fiscal", 7)
	require.NoError(t, err)

	require.Len(t, got, 3, "listing stops at MaxPerQuery")
	assert.Equal(t, "a", got[0].ExternalID)
	assert.Equal(t, "t1", got[0].ThreadID)
	assert.Equal(t, "c", got[2].ExternalID)
	assert.Equal(t, "nota fiscal newer_than:7d", queries[0])
}

func TestGmailListCandidatesError(t *testing.T) {
	src := newFakeGmail(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	})

	_, err := src.ListCandidates(context.Background(), "recibo", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recibo")
}

func TestGmailFetchFull(t *testing.T) {
	src := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/gmail/v1/users/me/messages/msg-1"), r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(t, w, map[string]any{
			"id":           "msg-1",
			"threadId":     "thr-1",
			"snippet":      "Obrigado pela compra",
			"internalDate": "1768930320000",
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []map[string]string{
					{"name": "Subject", "value": "Nota Fiscal Supermercado X"},
					{"name": "Subject", "value": "duplicate header ignored"},
					{"name": "Date", "value": "Tue, 20 Jan 2026 14:32:00 -0300"},
				},
				"parts": []map[string]any{
					{"mimeType": "text/plain", "body": map[string]any{"data": enc("Total: R$ 87,50")}},
					{"mimeType": "application/pdf", "filename": "nota.pdf", "body": map[string]any{"attachmentId": "att"}},
				},
			},
		})
	})

	msg, err := src.FetchFull(context.Background(), "msg-1")
	require.NoError(t, err)

	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "thr-1", msg.ThreadID)
	assert.Equal(t, "Nota Fiscal Supermercado X", msg.Header("subject"))
	assert.Equal(t, int64(1768930320000), msg.InternalDate.UnixMilli())
	require.Len(t, msg.Payload.Parts, 2)
	assert.True(t, msg.Payload.Parts[1].IsAttachment())
	assert.Equal(t, "Total: R$ 87,50", ExtractBody(msg.Payload))
}

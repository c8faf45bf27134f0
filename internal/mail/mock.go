package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/service"
)

// MockSource is an in-memory mailbox for tests. Queries map to the ids they return;
// Messages holds the full messages by id.
type MockSource struct {
	Queries  map[string][]string
	Messages map[string]*model.MailMessage

	// Optional failure injection
	ListErr  error
	FetchErr map[string]error

	mu         sync.Mutex
	ListCalls  []ListCall
	FetchCalls []string
}

// ListCall records the parameters of a ListCandidates call.
type ListCall struct {
	Query      string
	WindowDays int
}

// NewMockSource creates an empty mock mailbox.
func NewMockSource() *MockSource {
	return &MockSource{
		Queries:  make(map[string][]string),
		Messages: make(map[string]*model.MailMessage),
		FetchErr: make(map[string]error),
	}
}

// Add stores msg and makes it visible to query.
func (m *MockSource) Add(query string, msg *model.MailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[msg.ID] = msg
	m.Queries[query] = append(m.Queries[query], msg.ID)
}

// ListCandidates implements service.MailSource.
func (m *MockSource) ListCandidates(_ context.Context, query string, windowDays int) ([]service.MailCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, ListCall{Query: query, WindowDays: windowDays})
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	ids := m.Queries[query]
	out := make([]service.MailCandidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, service.MailCandidate{ExternalID: id})
	}
	return out, nil
}

// FetchFull implements service.MailSource.
func (m *MockSource) FetchFull(_ context.Context, externalID string) (*model.MailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, externalID)
	if err := m.FetchErr[externalID]; err != nil {
		return nil, err
	}
	msg, ok := m.Messages[externalID]
	if !ok {
		return nil, fmt.Errorf("message %s not found", externalID)
	}
	return msg, nil
}

// FetchCount returns how many times FetchFull was called.
func (m *MockSource) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FetchCalls)
}

var _ service.MailSource = (*MockSource)(nil)

// TextMessage builds a single-part message whose body is base64url encoded the way
// Gmail delivers it. headers are name/value pairs.
func TextMessage(id, mimeType, body string, headers ...string) *model.MailMessage {
	h := make(map[string]string, len(headers)/2)
	for i := 0; i+1 < len(headers); i += 2 {
		h[headers[i]] = headers[i+1]
	}
	return &model.MailMessage{
		ID: id,
		Payload: model.MailPart{
			MIMEType: mimeType,
			Headers:  h,
			Body:     base64.URLEncoding.EncodeToString([]byte(body)),
		},
	}
}

package extract

import (
	"context"
	"sync"

	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/service"
)

// MockExtractor is a scripted extractor for tests.
type MockExtractor struct {
	// ExtractFunc, when set, decides every response.
	ExtractFunc func(req service.ExtractRequest) (model.Extraction, error)
	// Response is returned when ExtractFunc is nil.
	Response model.Extraction
	Err      error
	Calls    []service.ExtractRequest
	mu       sync.Mutex
}

var _ service.Extractor = (*MockExtractor)(nil)

// Extract records the call and returns the scripted response.
func (m *MockExtractor) Extract(_ context.Context, req service.ExtractRequest) (model.Extraction, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn, resp, err := m.ExtractFunc, m.Response, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	if err != nil {
		return model.UnavailableExtraction(err), err
	}
	return resp, nil
}

// CallCount returns the number of Extract calls.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockProvider returns scripted raw replies, one per call; the last reply repeats.
type MockProvider struct {
	Replies []string
	Errs    []error
	Prompts []Prompt
	mu      sync.Mutex
}

// Complete records the prompt and returns the next scripted reply.
func (m *MockProvider) Complete(_ context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.Prompts)
	m.Prompts = append(m.Prompts, prompt)

	if n < len(m.Errs) && m.Errs[n] != nil {
		return "", m.Errs[n]
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	if n >= len(m.Replies) {
		n = len(m.Replies) - 1
	}
	return m.Replies[n], nil
}

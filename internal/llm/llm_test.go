package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/askpdf/askpdf/internal/config"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestNewProviderOllama(t *testing.T) {
	provider, err := NewProvider(config.ModelProfile{
		Provider: config.ProviderOllama,
		Model:    "llama3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "ollama" {
		t.Errorf("expected name 'ollama', got %q", provider.Name())
	}
	ollamaP, ok := provider.(*OllamaProvider)
	if !ok {
		t.Fatalf("expected *OllamaProvider, got %T", provider)
	}
	if ollamaP.baseURL != config.OllamaBaseURL {
		t.Errorf("expected default base URL, got %q", ollamaP.baseURL)
	}
}

func TestNewProviderMissingAPIKey(t *testing.T) {
	t.Setenv("ASKPDF_TEST_OR_KEY", "")
	_, err := NewProvider(config.ModelProfile{
		Provider:  config.ProviderOpenRouter,
		Model:     "openai/gpt-oss-20b:free",
		APIKeyEnv: "ASKPDF_TEST_OR_KEY",
	})
	if err == nil {
		t.Error("expected error for profile with missing API key")
	}
}

func TestNewProviderOpenRouter(t *testing.T) {
	t.Setenv("ASKPDF_TEST_OR_KEY", "test-key")
	provider, err := NewProvider(config.ModelProfile{
		Provider:  config.ProviderOpenRouter,
		Model:     "openai/gpt-oss-20b:free",
		APIKeyEnv: "ASKPDF_TEST_OR_KEY",
		RPM:       20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openrouter" {
		t.Errorf("expected name 'openrouter', got %q", provider.Name())
	}
	if _, ok := provider.(*RateLimitedProvider); !ok {
		t.Errorf("expected rate limited wrapper for rpm > 0, got %T", provider)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(config.ModelProfile{Provider: "anthropic", Model: "some-model"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")

	if unwrapped := NewRateLimitedProvider(mock, 0); unwrapped != Provider(mock) {
		t.Error("rpm 0 should return the provider unwrapped")
	}

	rl := NewRateLimitedProvider(mock, 600)
	resp, err := rl.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterPacesRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// 600 rpm means one request every 100ms.
	rl := NewRateLimitedProvider(mock, 600)

	ctx := context.Background()
	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := rl.Complete(ctx, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 180*time.Millisecond {
		t.Errorf("three requests finished in %v, expected pacing of ~100ms between them", elapsed)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	mock := NewMockProvider("test")
	// 2 rpm means the second request would wait 30 seconds.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}

	if _, err := rl.Complete(ctx, req); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	if _, err := rl.Complete(ctx, req); err == nil {
		t.Error("expected context deadline error for second request")
	}
	if mock.CallCount() != 1 {
		t.Errorf("backend should only see the first request, got %d", mock.CallCount())
	}
}

func TestOpenAIProviderComplete(t *testing.T) {
	var captured struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "The answer is 42."},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider("test-key", "test-model", ts.URL, "openai")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "answer briefly"},
			{Role: RoleUser, Content: "what is the answer?"},
		},
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != "The answer is 42." {
		t.Errorf("content: got %q", resp.Content)
	}
	if resp.InputTokens != 11 || resp.OutputTokens != 7 {
		t.Errorf("usage: got %d/%d, want 11/7", resp.InputTokens, resp.OutputTokens)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason: got %q", resp.FinishReason)
	}
	if captured.Model != "test-model" {
		t.Errorf("request model: got %q", captured.Model)
	}
	if captured.MaxTokens != 500 {
		t.Errorf("request max_tokens: got %d, want 500", captured.MaxTokens)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("request messages malformed: %+v", captured.Messages)
	}
}

func TestOllamaProviderComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream to be disabled")
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:         ollamaMessage{Role: "assistant", Content: "ok"},
			Model:           "llama3",
			Done:            true,
			DoneReason:      "stop",
			PromptEvalCount: 5,
			EvalCount:       3,
		})
	}))
	defer ts.Close()

	p := NewOllamaProvider(ts.URL, "llama3")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content: got %q", resp.Content)
	}
	if resp.Model != "llama3" {
		t.Errorf("model: got %q", resp.Model)
	}
	if resp.InputTokens != 5 || resp.OutputTokens != 3 {
		t.Errorf("usage: got %d/%d, want 5/3", resp.InputTokens, resp.OutputTokens)
	}
}

package openai_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/openai"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned chat completions and transcriptions.
type fakeAPI struct {
	mu       sync.Mutex
	content  string
	status   int
	requests []map[string]any
	paths    []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
		_, _ = w.Write([]byte(`{"text":"  quiero un poke de atún  "}`))
		return
	}

	body, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(body, &req)
	f.requests = append(f.requests, req)

	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1717600000,
		"model":   "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": f.content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) lastRequest() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newClient(t *testing.T, api *fakeAPI) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	require.NotNil(t, c)
	return c
}

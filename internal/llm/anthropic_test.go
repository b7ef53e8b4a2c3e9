package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "msg_1",
			"content": []map[string]string{
				{"type": "text", "text": "[{\"text\":\"anna\","},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "\"type\":\"PERSON\"}]"},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer ts.Close()

	p := NewAnthropicProvider("test-key", "")
	p.baseURL = ts.URL

	got, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)

	// Text blocks are concatenated, non-text blocks skipped.
	assert.Equal(t, `[{"text":"anna","type":"PERSON"}]`, got)
	assert.Equal(t, DefaultAnthropicModel, gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicCompleteAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	defer ts.Close()

	p := NewAnthropicProvider("test-key", "")
	p.baseURL = ts.URL

	_, err := p.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAnthropicCompleteErrorExtractionFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer ts.Close()

	p := NewAnthropicProvider("test-key", "")
	p.baseURL = ts.URL

	_, err := p.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

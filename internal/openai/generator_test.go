package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		body := map[string]any{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if captured != nil {
			*captured = body
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4.1-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestGenerator_Generate(t *testing.T) {
	var body map[string]any

	srv := chatServer(t, "  Buena respuesta, con matices.  ", &body)
	defer srv.Close()

	g := NewGenerator("test-key",
		WithGeneratorBaseURL(srv.URL),
		WithSystemInstruction("Eres un evaluador."),
		WithMaxTokens(300),
	)

	out, err := g.Generate(context.Background(), "Evalúa esta respuesta")
	require.NoError(t, err)
	assert.Equal(t, "Buena respuesta, con matices.", out)

	assert.Equal(t, "gpt-4.1-mini", body["model"])
	assert.InDelta(t, 0.0, body["temperature"], 1e-9)
	assert.InDelta(t, 300.0, body["max_completion_tokens"], 1e-9)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestGenerator_emptyCompletion(t *testing.T) {
	srv := chatServer(t, "   ", nil)
	defer srv.Close()

	g := NewGenerator("test-key", WithGeneratorBaseURL(srv.URL))

	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestGenerator_providerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	g := NewGenerator("test-key", WithGeneratorBaseURL(srv.URL))

	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat completion")
}

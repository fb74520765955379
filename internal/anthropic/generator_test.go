package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-3-5-haiku-latest",
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "La respuesta identifica "},
				{"type": "text", "text": "el objetivo de aprendizaje."},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 8},
		})
	}))
	defer srv.Close()

	g := NewGenerator("test-key",
		WithBaseURL(srv.URL),
		WithSystemInstruction("Eres un evaluador."),
		WithMaxTokens(500),
	)

	out, err := g.Generate(context.Background(), "Evalúa")
	require.NoError(t, err)
	assert.Equal(t, "La respuesta identifica el objetivo de aprendizaje.", out)

	assert.InDelta(t, 0.0, body["temperature"], 1e-9)
	assert.InDelta(t, 500.0, body["max_tokens"], 1e-9)
	assert.NotNil(t, body["system"])
}

func TestGenerator_emptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	_, err := NewGenerator("k", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

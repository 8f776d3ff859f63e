package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 150, req.GenerationConfig.MaxOutputTokens)
		assert.InDelta(t, 0.2, req.GenerationConfig.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"label\":\"x\"}"}]}}]}`))
	}))
	defer srv.Close()

	out, err := NewGeminiService("k").WithBaseURL(srv.URL).Generate(context.Background(), "hello", 150, 0.2)
	require.NoError(t, err)
	assert.Equal(t, `{"label":"x"}`, out)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := NewGeminiService("k").WithBaseURL(srv.URL).Generate(context.Background(), "hello", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewGeminiService("k").WithBaseURL(srv.URL).Generate(context.Background(), "hello", 10, 0)
	assert.Error(t, err)
}

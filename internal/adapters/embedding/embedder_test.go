package embedding_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour_match/internal/adapters/embedding"
)

// embeddingsServer answers OpenAI-style /embeddings calls with a vector
// whose first component is the input's length.
func embeddingsServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(in)), 1},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestEmbedTexts_OrderAndBatching(t *testing.T) {
	var calls atomic.Int32
	ts := embeddingsServer(t, &calls)

	e, err := embedding.New(embedding.Config{BaseURL: ts.URL, Model: "nomic-embed-text", BatchSize: 2})
	require.NoError(t, err)

	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedTexts_EmptyInputSkipsCall(t *testing.T) {
	var calls atomic.Int32
	ts := embeddingsServer(t, &calls)

	e, err := embedding.New(embedding.Config{BaseURL: ts.URL, Model: "m"})
	require.NoError(t, err)

	vecs, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Zero(t, calls.Load())
}

func TestEmbedTexts_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(ts.Close)

	e, err := embedding.New(embedding.Config{BaseURL: ts.URL, Model: "m"})
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := embedding.New(embedding.Config{Model: "m"})
	assert.Error(t, err)
	_, err = embedding.New(embedding.Config{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// embeddingResponse mirrors the OpenAI-compatible API embedding response.
type embeddingResponse struct {
	Object string         `json:"object"`
	Data   []embeddingRow `json:"data"`
	Model  string         `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingRow struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedText(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	emb := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		resp := embeddingResponse{Object: "list", Model: "test-model"}
		resp.Data = []embeddingRow{{Object: "embedding", Embedding: expectedVec, Index: 0}}
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	result, err := emb.EmbedText(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}

	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
}

func TestBatchEmbedText_RestoresInputOrder(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := embeddingResponse{Object: "list", Model: "test-model"}
		// Deliberately out of order: the index field is authoritative.
		resp.Data = []embeddingRow{
			{Object: "embedding", Embedding: []float32{2, 2}, Index: 1},
			{Object: "embedding", Embedding: []float32{1, 1}, Index: 0},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	result, err := emb.BatchEmbedText(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbedText failed: %v", err)
	}
	if result.Embeddings[0][0] != 1 || result.Embeddings[1][0] != 2 {
		t.Fatalf("embeddings not in input order: %v", result.Embeddings)
	}
}

func TestBatchEmbedText_CountMismatch(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := embeddingResponse{Object: "list", Model: "test-model"}
		resp.Data = []embeddingRow{{Object: "embedding", Embedding: []float32{1}, Index: 0}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	if _, err := emb.BatchEmbedText(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for vector count mismatch")
	}
}

func TestEmbedText_APIError(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"upstream unavailable"}`))
	})

	if _, err := emb.EmbedText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from API failure")
	}
}

func TestBatchEmbedText_Empty(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty input")
	})

	res, err := emb.BatchEmbedText(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Fatalf("expected no embeddings, got %d", len(res.Embeddings))
	}
}

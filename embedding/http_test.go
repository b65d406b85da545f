package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rushteam/projecthub/core"
)

func embedHandler(t *testing.T, dim int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !req.Normalize {
			t.Error("normalize flag should be set by default")
		}
		resp := embedResponse{Model: "all-MiniLM-L6-v2", Dimensions: dim}
		for range req.Texts {
			vec := make([]float64, dim)
			vec[0] = 1
			resp.Embeddings = append(resp.Embeddings, vec)
		}
		json.NewEncoder(w).Encode(&resp)
	}
}

func TestHTTPEmbedder_EmbedTexts(t *testing.T) {
	srv := httptest.NewServer(embedHandler(t, 4))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL)
	vectors, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 4 {
		t.Fatalf("got %d vectors of dim %d", len(vectors), len(vectors[0]))
	}
}

func TestHTTPEmbedder_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		embedHandler(t, 4)(w, r)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, WithRetries(2, 10*time.Millisecond))
	vectors, err := e.EmbedTexts(context.Background(), []string{"one"})
	if err != nil {
		t.Fatalf("EmbedTexts after retry: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vectors))
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestHTTPEmbedder_UnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, WithRetries(2, 5*time.Millisecond))
	_, err := e.EmbedText(context.Background(), "one")
	if !core.IsUnavailable(err) {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
	// 首次 + 2 次重试
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestHTTPEmbedder_ChunksLargeBatches(t *testing.T) {
	var requests atomic.Int64
	var maxBatch atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if n := int64(len(req.Texts)); n > maxBatch.Load() {
			maxBatch.Store(n)
		}
		resp := embedResponse{}
		for range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float64{1})
		}
		json.NewEncoder(w).Encode(&resp)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL)
	e.MaxBatchSize = 10

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "text"
	}
	vectors, err := e.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vectors) != 25 {
		t.Fatalf("got %d vectors, want 25", len(vectors))
	}
	if requests.Load() != 3 {
		t.Errorf("requests = %d, want 3 (10+10+5)", requests.Load())
	}
	if maxBatch.Load() > 10 {
		t.Errorf("max batch size = %d, exceeds limit 10", maxBatch.Load())
	}
}

func TestHTTPEmbedder_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(&HealthStatus{Status: "healthy", Model: "all-MiniLM-L6-v2", ModelLoaded: true})
	}))
	defer srv.Close()

	hs, err := NewHTTPEmbedder(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if hs.Status != "healthy" || !hs.ModelLoaded {
		t.Errorf("unexpected health status: %+v", hs)
	}
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Complete(t *testing.T) {
	var gotReq completionRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("request path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(completionResponse{
			ID: "gen-1",
			Choices: []completionChoice{
				{Message: Message{Role: "assistant", Content: "the reply"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "default-model")
	reply, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
	}, CompletionParams{Temperature: 0.5, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if reply != "the reply" {
		t.Errorf("Complete() = %q, want %q", reply, "the reply")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "default-model" {
		t.Errorf("request model = %q, want client default", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
	if gotReq.Temperature != 0.5 || gotReq.MaxTokens != 100 {
		t.Errorf("request params = %+v", gotReq)
	}
}

func TestClient_Complete_ModelOverride(t *testing.T) {
	var gotReq completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(completionResponse{
			Choices: []completionChoice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "default-model")
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionParams{Model: "other-model"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotReq.Model != "other-model" {
		t.Errorf("request model = %q, want override", gotReq.Model)
	}
}

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		call    func(*Client) error
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			call: func(c *Client) error {
				_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionParams{})
				return err
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(completionResponse{})
			},
			call: func(c *Client) error {
				_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionParams{})
				return err
			},
		},
		{
			name:    "empty message list",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			call: func(c *Client) error {
				_, err := c.Complete(context.Background(), nil, CompletionParams{})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, "sk-test", "model")
			if err := tt.call(client); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("request path = %q, want /embeddings", r.URL.Path)
		}

		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		data := make([]embeddingData, len(req.Input))
		for i := range req.Input {
			data[i] = embeddingData{Embedding: []float64{float64(i), float64(i) + 0.5}}
		}
		_ = json.NewEncoder(w).Encode(embeddingsResponse{Data: data})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "sk-test", "embed-model", 2)
	vecs, err := client.EmbedTexts(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}

	if len(vecs) != 3 {
		t.Fatalf("EmbedTexts() returned %d vectors, want 3", len(vecs))
	}
	// Order preserved: vector i was generated for text i.
	for i, vec := range vecs {
		if vec[0] != float32(i) {
			t.Errorf("vector %d = %v, out of order", i, vec)
		}
	}
}

func TestEmbeddingsClient_EmbedTexts_Validation(t *testing.T) {
	tests := []struct {
		name string
		data []embeddingData
	}{
		{
			name: "count mismatch",
			data: []embeddingData{{Embedding: []float64{0.1, 0.2}}},
		},
		{
			name: "size mismatch",
			data: []embeddingData{
				{Embedding: []float64{0.1, 0.2}},
				{Embedding: []float64{0.1, 0.2, 0.3}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(embeddingsResponse{Data: tt.data})
			}))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "sk-test", "embed-model", 2)
			if _, err := client.EmbedTexts(context.Background(), []string{"one", "two"}); err == nil {
				t.Error("EmbedTexts() expected error, got nil")
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTexts_EmptyInput(t *testing.T) {
	client := NewEmbeddingsClient("http://unused", "sk-test", "embed-model", 2)
	if _, err := client.EmbedTexts(context.Background(), nil); err == nil {
		t.Error("EmbedTexts() expected error for empty input, got nil")
	}
}

package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func chatReply(text string) string {
	return `{"choices": [{"message": {"role": "assistant", "content": "` + text + `"}}]}`
}

func TestOpenAIGenerator_DisabledWithoutKey(t *testing.T) {
	g := NewOpenAIGenerator(OpenAIConfig{}, nil)
	if _, err := g.Generate(context.Background(), "sys", "prompt"); err != ErrGeneratorDisabled {
		t.Errorf("err = %v, want ErrGeneratorDisabled", err)
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		_, _ = w.Write([]byte(chatReply("Sow after the first rains.")))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	text, err := g.Generate(context.Background(), "advisor", "when to sow rice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Sow after the first rains." {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAIGenerator_RetriesTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(chatReply("Retried fine.")))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 1}, nil)
	text, err := g.Generate(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("Generate after retry: %v", err)
	}
	if text != "Retried fine." {
		t.Errorf("text = %q", text)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestOpenAIGenerator_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 2}, nil)
	if _, err := g.Generate(context.Background(), "sys", "prompt"); err == nil {
		t.Fatal("401 did not error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want no retries on 4xx", calls)
	}
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded"}, "choices": []}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"}, nil)
	if _, err := g.Generate(context.Background(), "sys", "prompt"); err == nil {
		t.Error("embedded api error not surfaced")
	}
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"}, nil)
	if _, err := g.Generate(context.Background(), "sys", "prompt"); err == nil {
		t.Error("empty choices did not error")
	}
}

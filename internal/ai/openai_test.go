package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/archivist/internal/ai"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "upstream failure", "type": "server_error"},
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func newClassifier(url string) ai.Classifier {
	return ai.New(ai.Config{BaseURL: url + "/v1", APIKey: "test", Model: "test-model"}, discard())
}

func TestNewUnconfigured(t *testing.T) {
	c := ai.New(ai.Config{}, discard())
	if c.Available() {
		t.Fatal("unconfigured classifier reports available")
	}

	_, err := c.Classify(context.Background(), ai.Request{Text: "x"})
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Errorf("Classify() error = %v, want ErrUnavailable", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain json", `{"correspondent":"ACME","tags":["invoice"],"amount":42.5,"confidence":0.9}`},
		{"fenced json", "Here you go:\n```json\n{\"correspondent\":\"ACME\",\"tags\":[\"invoice\"],\"amount\":42.5,\"confidence\":0.9}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen chatRequest
			srv := completionServer(t, http.StatusOK, tt.content, &seen)
			defer srv.Close()

			c := newClassifier(srv.URL)
			if !c.Available() {
				t.Fatal("configured classifier reports unavailable")
			}

			s, err := c.Classify(context.Background(), ai.Request{
				Text:           "Invoice from ACME",
				Correspondents: []string{"ACME Corp", "Globex"},
				Tags:           []string{"invoice"},
			})
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			if s.Correspondent == nil || *s.Correspondent != "ACME" {
				t.Errorf("correspondent = %v", s.Correspondent)
			}
			if s.Amount == nil || *s.Amount != 42.5 {
				t.Errorf("amount = %v", s.Amount)
			}
			if s.Confidence == nil || *s.Confidence != 0.9 {
				t.Errorf("confidence = %v", s.Confidence)
			}

			if seen.Model != "test-model" || len(seen.Messages) != 2 {
				t.Fatalf("request = %+v", seen)
			}
			user := seen.Messages[1].Content
			for _, want := range []string{"ACME Corp, Globex", "EXISTING DOCUMENT TYPES: none", "Invoice from ACME"} {
				if !strings.Contains(user, want) {
					t.Errorf("user prompt missing %q", want)
				}
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		text    string
		want    error
	}{
		{"provider failure", http.StatusInternalServerError, "", "doc", ai.ErrProvider},
		{"prose reply", http.StatusOK, "I think it is an invoice.", "doc", ai.ErrInvalidResponse},
		{"empty text", http.StatusOK, "{}", "   ", ai.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, tt.status, tt.content, nil)
			defer srv.Close()

			_, err := newClassifier(srv.URL).Classify(context.Background(), ai.Request{Text: tt.text})
			if !errors.Is(err, tt.want) {
				t.Errorf("Classify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joseph-ayodele/meddocs/internal/llm"
)

func newTestServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", body["model"])
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
}

func TestTranslate(t *testing.T) {
	srv := newTestServer(t, "```\nBlood glucose is elevated.\n```", http.StatusOK)
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	out, err := c.Translate(context.Background(), "Der Blutzucker ist erhöht.", "de", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Blood glucose is elevated." {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateRefusal(t *testing.T) {
	srv := newTestServer(t, "I cannot provide medical translations.", http.StatusOK)
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	if _, err := c.Translate(context.Background(), "x", "de", "en"); !errors.Is(err, llm.ErrRefusal) {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestSummarizeHTTPError(t *testing.T) {
	srv := newTestServer(t, "", http.StatusTooManyRequests)
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	_, err := c.Summarize(context.Background(), "Glucose: 150 mg/dL")
	var se *llm.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v", err)
	}
}

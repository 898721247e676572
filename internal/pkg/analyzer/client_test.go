package analyzer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return &Client{
		APIKey:     "test-key",
		Model:      "test-model",
		APIBaseURL: baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func completionResponse(content string) string {
	payload := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestAnalyzeParsesStructuredResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		raw, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		_ = json.Unmarshal(raw, &req)
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}

		result := `{"score":72,"summary":"solid","strengths":["clear impact"],"gaps":["no metrics"],"suggestions":["quantify results"]}`
		_, _ = w.Write([]byte(completionResponse(result)))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Analyze(context.Background(), "some resume text")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.Score != 72 {
		t.Fatalf("score = %d, want 72", got.Score)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "quantify results" {
		t.Fatalf("unexpected suggestions %v", got.Suggestions)
	}
}

func TestAnalyzeRejectsOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse(`{"score":140,"summary":"x"}`)))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Analyze(context.Background(), "resume"); err == nil {
		t.Fatalf("expected error for out-of-range score")
	}
}

func TestOptimizeForJobSendsBothTexts(t *testing.T) {
	var gotUserContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(raw, &req)
		for _, m := range req.Messages {
			if m.Role == "user" {
				gotUserContent = m.Content
			}
		}
		_, _ = w.Write([]byte(completionResponse("rewritten resume")))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).OptimizeForJob(context.Background(), "my resume", "backend engineer role")
	if err != nil {
		t.Fatalf("OptimizeForJob failed: %v", err)
	}
	if got != "rewritten resume" {
		t.Fatalf("unexpected content %q", got)
	}
	if !strings.Contains(gotUserContent, "backend engineer role") || !strings.Contains(gotUserContent, "my resume") {
		t.Fatalf("user message missing inputs: %q", gotUserContent)
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	c := testClient("http://localhost:1")
	c.APIKey = ""
	if _, err := c.Optimize(context.Background(), "resume"); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Optimize(context.Background(), "resume"); err == nil {
		t.Fatalf("expected error on upstream 429")
	}
}

package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *OpenAIAnalyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIAnalyzer("test-key", "test-model")
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	client.apiURL = server.URL
	return client
}

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestOpenAIAnalyzerReturnsJSON(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	client := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`{"docType":"identity_document","valid":true,"summary":"ok","flags":[],"fields":{}}`)))
	})

	raw, err := client.Analyze(context.Background(), Input{
		DocType:       "identity_document",
		Text:          "Name: Jane Doe\nNumber: AB1234567",
		OCRConfidence: 0.9,
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !json.Valid(raw) {
		t.Fatalf("result not valid JSON: %s", raw)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("missing bearer auth, got %q", gotAuth)
	}
	if gotReq.Model != "test-model" || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || !strings.Contains(gotReq.Messages[1].Content, "identity_document") {
		t.Fatalf("prompt should carry the document type: %+v", gotReq.Messages)
	}
}

func TestOpenAIAnalyzerRepairsInvalidJSON(t *testing.T) {
	calls := 0
	client := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.Write([]byte(completionBody("Sure! Here is the JSON: {broken")))
			return
		}
		w.Write([]byte(completionBody(`{"valid":true}`)))
	})

	raw, err := client.Analyze(context.Background(), Input{DocType: "bank_statement", Text: "balance 10.00"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one repair round, got %d calls", calls)
	}
	if string(raw) != `{"valid":true}` {
		t.Fatalf("unexpected result: %s", raw)
	}
}

func TestOpenAIAnalyzerSurfacesAPIError(t *testing.T) {
	client := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := client.Analyze(context.Background(), Input{DocType: "bank_statement", Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestNewOpenAIAnalyzerRequiresConfig(t *testing.T) {
	if _, err := NewOpenAIAnalyzer("", "model"); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewOpenAIAnalyzer("key", " "); err == nil {
		t.Fatal("expected error without model")
	}
}

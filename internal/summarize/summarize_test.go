package summarize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLocalSummary(t *testing.T) {
	got, err := Local{}.Summarize(context.Background(), "alice said hello to bob")
	if err != nil {
		t.Fatalf("local summarize: %v", err)
	}
	if !strings.Contains(got, "5 words") {
		t.Errorf("summary %q missing word count", got)
	}
	if !strings.Contains(got, "Action Items:") {
		t.Errorf("summary %q missing action items section", got)
	}
}

func TestLocalEmptyTranscript(t *testing.T) {
	got, err := Local{}.Summarize(context.Background(), "   ")
	if err != nil {
		t.Fatalf("local summarize: %v", err)
	}
	if !strings.Contains(got, "No transcript available yet") {
		t.Errorf("empty transcript summary %q", got)
	}
}

func TestGeminiRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "key123" {
			t.Errorf("api key header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Summary:\nAll good."}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("key123")
	g.URL = srv.URL
	got, err := g.Summarize(context.Background(), "the meeting transcript")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(got, "All good.") {
		t.Errorf("summary %q", got)
	}
}

func TestGeminiEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("key123")
	g.URL = srv.URL
	if _, err := g.Summarize(context.Background(), "something"); err == nil {
		t.Fatal("empty candidate list did not surface an error")
	}
}

func TestGeminiSkipsCallForEmptyTranscript(t *testing.T) {
	g := NewGemini("key123")
	g.URL = "http://127.0.0.1:0" // unreachable; must not be contacted
	got, err := g.Summarize(context.Background(), "")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(got, "No transcript available yet") {
		t.Errorf("empty transcript summary %q", got)
	}
}

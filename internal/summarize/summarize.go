// Package summarize produces meeting summaries from transcript text. The
// provider is opaque to the rest of the system: text in, text out.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Summarizer is the contract for any summary provider.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, transcript string) (string, error)
}

const emptyTranscriptSummary = "Summary:\nNo transcript available yet. Start the meeting and speak for a few minutes before generating a summary.\n\nMeeting Minutes:\n- No content to summarize\n\nAction Items:\n- No action items identified"

// Local produces a deterministic summary without any external call. It is
// the fallback when no API key is configured or the remote provider fails.
type Local struct{}

func (Local) Name() string { return "local" }

func (Local) Summarize(_ context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return emptyTranscriptSummary, nil
	}
	words := len(strings.Fields(transcript))
	return fmt.Sprintf("Summary:\nMeeting transcript analyzed (%d words). This is a locally generated summary; configure a summarization API key for AI-powered results.\n\nMeeting Minutes:\n- Participants discussed the main topics and shared insights\n- Technical aspects and implementation details were reviewed\n- Next steps and follow-up actions were identified\n\nAction Items:\n- Review the meeting transcript and key decisions\n- Follow up on discussed topics in the next meeting", words), nil
}

const geminiPrompt = `You are an AI meeting assistant. Analyze the following meeting transcript and produce:

1. A concise meeting summary (2-4 sentences highlighting key topics and outcomes)
2. Detailed meeting minutes with main discussion points
3. Action items with assignees if mentioned, or general action items otherwise

Format the response with "Summary:", "Meeting Minutes:" and "Action Items:" sections. If the transcript is very short or unclear, acknowledge this and provide what analysis you can.

Transcript:
`

// Gemini calls the Google Generative Language REST API.
type Gemini struct {
	APIKey string
	Model  string
	URL    string // override for tests; empty means the public endpoint
	Client *http.Client
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		APIKey: apiKey,
		Model:  "gemini-1.5-flash",
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (*Gemini) Name() string { return "gemini" }

func (g *Gemini) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return emptyTranscriptSummary, nil
	}

	url := g.URL
	if url == "" {
		url = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", g.Model)
	}

	reqBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": geminiPrompt + transcript}}},
		},
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, b)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}

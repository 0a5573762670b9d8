// Package transcribe turns batched raw audio into text. The provider is
// pluggable; when no real provider is configured the Static stand-in is
// substituted so the rest of the pipeline keeps its shape.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Transcriber is the contract for any transcription provider. Transcribe may
// be slow (network call); callers bound it with the context. An empty result
// with a nil error means "no speech in this window".
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Static always reports the same text, like the prototype did before a real
// speech backend was wired. Useful in dev and as the no-provider stand-in.
type Static struct {
	Text string
}

func (Static) Name() string { return "static" }

func (s Static) Transcribe(_ context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	if s.Text == "" {
		return "[speech detected]", nil
	}
	return s.Text, nil
}

// Whisper calls an OpenAI-compatible audio transcription endpoint.
type Whisper struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client
}

func NewWhisper(url, apiKey string) *Whisper {
	return &Whisper{
		URL:    url,
		APIKey: apiKey,
		Model:  "whisper-1",
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (*Whisper) Name() string { return "whisper" }

func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err = part.Write(audio); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if err = mw.WriteField("model", w.Model); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if err = mw.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if w.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.APIKey)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whisper status %d: %s", resp.StatusCode, b)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("whisper decode: %w", err)
	}
	return out.Text, nil
}

// Package transcribe turns recorded speech into text with the OpenAI
// transcription endpoint.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/codewandler/voicert-go/audio"
	"github.com/sashabaranov/go-openai"
)

const DefaultModel = openai.Whisper1

type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *slog.Logger
}

type Option func(*openai.ClientConfig, *Transcriber)

// WithBaseURL points the client at another API root, such as a proxy.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig, _ *Transcriber) {
		c.BaseURL = url
	}
}

func WithOrg(org string) Option {
	return func(c *openai.ClientConfig, _ *Transcriber) {
		c.OrgID = org
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *openai.ClientConfig, _ *Transcriber) {
		c.HTTPClient = h
	}
}

func WithModel(model string) Option {
	return func(_ *openai.ClientConfig, t *Transcriber) {
		t.model = model
	}
}

func WithLanguage(language string) Option {
	return func(_ *openai.ClientConfig, t *Transcriber) {
		t.language = language
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(_ *openai.ClientConfig, t *Transcriber) {
		t.logger = logger
	}
}

func New(apiKey string, opts ...Option) *Transcriber {
	config := openai.DefaultConfig(apiKey)
	t := &Transcriber{
		model:  DefaultModel,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config, t)
	}
	t.client = openai.NewClientWithConfig(config)
	return t
}

// File transcribes an audio file.
func (t *Transcriber) File(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return t.transcribe(ctx, filepath.Base(path), data)
}

// PCM transcribes raw PCM audio of the given format.
func (t *Transcriber) PCM(ctx context.Context, pcm []byte, f audio.Format) (string, error) {
	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, pcm, f); err != nil {
		return "", err
	}
	return t.transcribe(ctx, "speech.wav", buf.Bytes())
}

func (t *Transcriber) transcribe(ctx context.Context, name string, data []byte) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: name,
		Reader:   bytes.NewReader(data),
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	t.logger.Debug("transcribed", slog.String("model", t.model), slog.Int("chars", len(resp.Text)))
	return resp.Text, nil
}

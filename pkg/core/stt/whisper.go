package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/earshot-dev/earshot/pkg/core/audio"
)

// Whisper is a batch-only Transcriber backed by the OpenAI transcription
// API. Streaming transcription is not supported by the endpoint; callers in
// streaming mode get ErrNotImplemented.
type Whisper struct {
	Unimplemented

	client *openai.Client
	cfg    audio.Config
	model  string
}

// NewWhisper creates a Whisper provider. A zero cfg selects
// audio.DefaultConfig.
func NewWhisper(apiKey string, cfg audio.Config) *Whisper {
	if cfg.SampleRate == 0 {
		cfg = audio.DefaultConfig()
	}
	return &Whisper{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
		model:  openai.Whisper1,
	}
}

// NewWhisperWithClient creates a Whisper provider with a preconfigured API
// client.
func NewWhisperWithClient(client *openai.Client, cfg audio.Config) *Whisper {
	if cfg.SampleRate == 0 {
		cfg = audio.DefaultConfig()
	}
	return &Whisper{client: client, cfg: cfg, model: openai.Whisper1}
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio.EncodeWAV(samples, w.cfg)),
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

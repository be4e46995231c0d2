// Package stt provides speech-to-text transcription for the listening
// orchestrator. Concrete providers are plugged in at construction time; a
// provider that lacks one of the two capabilities fails loudly with
// ErrNotImplemented rather than returning empty text.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by providers that do not support the
// requested transcription mode.
var ErrNotImplemented = errors.New("stt: not implemented")

// Transcriber is the transcription capability consumed by the orchestrator.
type Transcriber interface {
	// Transcribe converts a whole buffer of mono float32 samples to text.
	// It must accept arbitrary-length buffers, including empty ones.
	Transcribe(ctx context.Context, samples []float32) (string, error)

	// TranscribeStream consumes little-endian PCM16 chunks from in until the
	// channel is closed, incrementally transcribes them, and pushes text
	// fragments onto out in order. The orchestrator owns both channels and
	// their end-of-stream signaling; implementations must not close either,
	// and must select on ctx when sending.
	TranscribeStream(ctx context.Context, in <-chan []byte, out chan<- string) error
}

// Unimplemented provides loud failures for both capabilities. Providers
// embed it and override what they actually support.
type Unimplemented struct{}

// Transcribe implements Transcriber.
func (Unimplemented) Transcribe(context.Context, []float32) (string, error) {
	return "", fmt.Errorf("buffer transcription: %w", ErrNotImplemented)
}

// TranscribeStream implements Transcriber.
func (Unimplemented) TranscribeStream(context.Context, <-chan []byte, chan<- string) error {
	return fmt.Errorf("streaming transcription: %w", ErrNotImplemented)
}

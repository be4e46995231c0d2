// Command earshot-listen captures microphone turns and prints finalized
// transcripts until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/earshot-dev/earshot/pkg/core/audio"
	"github.com/earshot-dev/earshot/pkg/core/capture"
	"github.com/earshot-dev/earshot/pkg/core/ear"
	"github.com/earshot-dev/earshot/pkg/core/stt"
	"github.com/earshot-dev/earshot/pkg/store/turnlog"
)

func main() {
	if err := run(); err != nil {
		slog.Error("earshot-listen failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		stream      = flag.Bool("stream", false, "overlap capture and transcription")
		provider    = flag.String("provider", "", "stt provider: whisper or deepgram (default picked by mode)")
		metricsAddr = flag.String("metrics", "", "expose Prometheus metrics on this address, e.g. :9090")
		silenceMs   = flag.Int("silence-ms", 2000, "trailing silence that ends an utterance")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	audioCfg := audio.DefaultConfig()
	transcriber, err := newTranscriber(*provider, *stream, audioCfg)
	if err != nil {
		return err
	}

	mic, err := capture.OpenMic(capture.MicConfig{Audio: audioCfg})
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer mic.Close()

	cfg := ear.DefaultConfig()
	cfg.Stream = *stream
	cfg.SilenceMs = *silenceMs
	cfg.Audio = audioCfg

	e := ear.New(cfg, mic, transcriber, nil)
	e.SetSink(ear.NewSlogSink(logger))

	metrics := ear.NewMetrics("earshot")
	e.SetMetrics(metrics)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics listening", "addr", *metricsAddr)
	}

	var store *turnlog.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		store, err = turnlog.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	mode := "batch"
	if *stream {
		mode = "stream"
	}
	sessionID := uuid.New()
	logger.Info("listening", "session", sessionID, "mode", mode, "silence_ms", *silenceMs)

	for {
		start := time.Now()
		transcript, err := e.Listen(ctx)
		if ctx.Err() != nil {
			logger.Info("shutting down")
			return nil
		}
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		if strings.TrimSpace(transcript) == "" {
			continue
		}
		fmt.Println(transcript)

		if store != nil {
			rec := turnlog.TurnRecord{
				SessionID:  sessionID,
				Mode:       mode,
				Transcript: transcript,
				Duration:   time.Since(start),
			}
			if err := store.RecordTurn(ctx, rec); err != nil {
				logger.Warn("turn not persisted", "error", err)
			}
		}
	}
}

// newTranscriber picks a provider. Streaming defaults to Deepgram, batch to
// Whisper; the flag overrides either way.
func newTranscriber(provider string, stream bool, cfg audio.Config) (stt.Transcriber, error) {
	if provider == "" {
		if stream {
			provider = "deepgram"
		} else {
			provider = "whisper"
		}
	}
	switch provider {
	case "whisper":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the whisper provider")
		}
		return stt.NewWhisper(key, cfg), nil
	case "deepgram":
		key := os.Getenv("DEEPGRAM_API_KEY")
		if key == "" {
			return nil, errors.New("DEEPGRAM_API_KEY is required for the deepgram provider")
		}
		return stt.NewDeepgram(key, cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

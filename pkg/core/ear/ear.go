package ear

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/earshot-dev/earshot/pkg/core/audio"
	"github.com/earshot-dev/earshot/pkg/core/capture"
	"github.com/earshot-dev/earshot/pkg/core/segment"
	"github.com/earshot-dev/earshot/pkg/core/stt"
)

const (
	// audioQueueDepth bounds the capture→transcription channel. At 20ms
	// chunks this is roughly 1.3 seconds of backlog.
	audioQueueDepth = 64

	// transcriptQueueDepth bounds the transcription→orchestrator channel.
	transcriptQueueDepth = 16
)

// punctuationRe strips everything but word and whitespace characters when
// normalizing interruption candidates.
var punctuationRe = regexp.MustCompile(`[^\w\s]`)

// Ear orchestrates turn-taking: it decides when the speaker has finished,
// produces one finalized transcript per Listen call, and watches for genuine
// interruptions while the system is speaking.
//
// Collaborator errors are never caught here; the retry and budget loops are
// quality heuristics, not fault tolerance.
type Ear struct {
	cfg         Config
	source      capture.Source
	transcriber stt.Transcriber
	segmenter   segment.Segmenter

	sink    Sink
	metrics *Metrics
}

// New creates an Ear. The segmenter may be nil, in which case the rule-based
// English segmenter is used.
func New(cfg Config, source capture.Source, transcriber stt.Transcriber, segmenter segment.Segmenter) *Ear {
	if segmenter == nil {
		segmenter = segment.NewRule()
	}
	return &Ear{
		cfg:         cfg.withDefaults(),
		source:      source,
		transcriber: transcriber,
		segmenter:   segmenter,
	}
}

// SetSink installs an optional lifecycle event sink.
func (e *Ear) SetSink(sink Sink) {
	e.sink = sink
}

// SetMetrics installs optional Prometheus instrumentation.
func (e *Ear) SetMetrics(metrics *Metrics) {
	e.metrics = metrics
}

// Config returns the effective configuration.
func (e *Ear) Config() Config {
	return e.cfg
}

func (e *Ear) emit(stage Stage, detail, extra string) {
	if e.sink == nil {
		return
	}
	e.sink.Log(stage, detail, extra)
}

// Listen records one user turn and returns its finalized transcript,
// dispatching to the batch or streaming loop per configuration.
func (e *Ear) Listen(ctx context.Context) (string, error) {
	start := time.Now()

	var (
		text   string
		cycles int
		err    error
	)
	if e.cfg.Stream {
		text, err = e.listenStream(ctx)
	} else {
		text, cycles, err = e.listenBatch(ctx)
	}
	if err != nil {
		return "", err
	}

	mode := "batch"
	if e.cfg.Stream {
		mode = "stream"
	}
	e.metrics.RecordTurn(mode, cycles, time.Since(start))
	return text, nil
}

// listenBatch captures silence-bounded segments and confirms sentence
// completion with a bounded number of retries. Each cycle transcribes the
// entire accumulated buffer: transcription context improves with history.
func (e *Ear) listenBatch(ctx context.Context) (string, int, error) {
	var (
		buf    = audio.NewBuffer()
		text   string
		cycles int
		first  = true
	)

	tries := e.cfg.MaxTries
	for tries > 0 {
		samples, err := e.source.RecordUser(ctx, e.cfg.silence(), !first)
		if err != nil {
			return "", cycles, fmt.Errorf("record user: %w", err)
		}
		first = false
		buf.Append(samples)
		e.metrics.RecordAudio(e.cfg.Audio.SampleDuration(len(samples)))
		cycles++

		e.emit(StageTranscribing, "STT", "")
		text, err = e.transcriber.Transcribe(ctx, buf.Samples())
		if err != nil {
			return "", cycles, fmt.Errorf("transcribe: %w", err)
		}
		e.emit(StageTranscribed, "STT", text)

		// A terminating period is always appended so the segmenter considers
		// the trailing fragment a candidate sentence.
		e.emit(StageSegmenting, "STT", text)
		if len(e.segmenter.Segment(text+" .")) > 1 {
			e.emit(StageBoundaryDetected, "STT", text)
			break
		}
		tries--
		e.emit(StageBoundaryMissing, "STT", fmt.Sprintf("%s. tries left: %d", text, tries))
	}
	return text, cycles, nil
}

// listenStream overlaps capture and transcription through a pair of
// single-producer channels. The channel close is the end-of-stream sentinel;
// the Ear owns both closes so the sentinel is pushed exactly once even when
// a worker fails. Both workers are joined before returning.
func (e *Ear) listenStream(ctx context.Context) (string, error) {
	audioCh := make(chan []byte, audioQueueDepth)
	textCh := make(chan string, transcriptQueueDepth)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(audioCh)
		return e.source.RecordUserStream(gctx, e.cfg.silence(), audioCh)
	})
	g.Go(func() error {
		defer close(textCh)
		return e.transcriber.TranscribeStream(gctx, audioCh, textCh)
	})

	var parts []string
	for frag := range textCh {
		parts = append(parts, frag)
	}

	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("listen stream: %w", err)
	}
	return strings.Join(parts, " "), nil
}

// InterruptListen watches for genuine user interruption while the system is
// speaking. It returns the normalized interrupting text, or "" when the
// speaker stayed quiet, only produced configured filler words until the
// budget ran out, or interruption listening is disabled.
//
// Budget exhaustion through repeated filler matches returns "" as a
// deliberate policy: filler speech never interrupts.
func (e *Ear) InterruptListen(ctx context.Context) (string, error) {
	if !e.cfg.ListenInterruptions {
		return "", nil
	}

	remaining := e.cfg.interruptBudget()
	for remaining > 0 {
		samples, err := e.source.RecordInterruption(ctx, remaining)
		if err != nil {
			return "", fmt.Errorf("record interruption: %w", err)
		}
		if samples == nil {
			// VAD found no voice in the whole remaining window.
			e.metrics.RecordInterruption("none")
			return "", nil
		}

		duration := e.cfg.Audio.SampleDuration(len(samples))
		e.emit(StageInterruptTranscribing, "STT", fmt.Sprintf("%.2f seconds", duration.Seconds()))
		e.metrics.RecordAudio(duration)

		var text string
		if e.cfg.Stream {
			text, err = e.simTranscribeStream(ctx, samples)
		} else {
			text, err = e.transcriber.Transcribe(ctx, samples)
		}
		if err != nil {
			return "", fmt.Errorf("transcribe interruption: %w", err)
		}
		e.emit(StageInterruptTranscribed, "STT", text)

		text = normalizeTranscript(text)
		if e.cfg.ignorable(text) {
			e.emit(StageInterruptDismissed, "STT", text)
			e.metrics.RecordInterruption("dismissed")
			remaining -= duration
			continue
		}
		e.metrics.RecordInterruption("real")
		return text, nil
	}

	e.metrics.RecordInterruption("none")
	return "", nil
}

// simTranscribeStream transcribes a single in-memory buffer through the
// streaming interface, so interruption handling stays agnostic to the
// selected listening mode: one PCM16 chunk plus the end-of-stream sentinel.
func (e *Ear) simTranscribeStream(ctx context.Context, samples []float32) (string, error) {
	audioCh := make(chan []byte, 1)
	textCh := make(chan string, transcriptQueueDepth)

	audioCh <- audio.FloatToPCM16(samples)
	close(audioCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(textCh)
		return e.transcriber.TranscribeStream(gctx, audioCh, textCh)
	})

	var parts []string
	for frag := range textCh {
		parts = append(parts, frag)
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}

// normalizeTranscript strips punctuation, lowercases and trims a candidate
// transcript for filler-word comparison.
func normalizeTranscript(text string) string {
	text = punctuationRe.ReplaceAllString(text, "")
	return strings.TrimSpace(strings.ToLower(text))
}

package ear

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/earshot-dev/earshot/pkg/core/audio"
	"github.com/earshot-dev/earshot/pkg/core/stt"
)

// scriptedSource replays canned capture results and records how it was
// called.
type scriptedSource struct {
	recordings    [][]float32
	interruptions [][]float32
	streamChunks  [][]byte
	streamErr     error

	continuedFlags []bool
	interruptMaxes []time.Duration
}

func (s *scriptedSource) RecordUser(ctx context.Context, silence time.Duration, continued bool) ([]float32, error) {
	s.continuedFlags = append(s.continuedFlags, continued)
	if len(s.recordings) == 0 {
		return nil, errors.New("no scripted recording left")
	}
	rec := s.recordings[0]
	s.recordings = s.recordings[1:]
	return rec, nil
}

func (s *scriptedSource) RecordUserStream(ctx context.Context, silence time.Duration, out chan<- []byte) error {
	for _, chunk := range s.streamChunks {
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.streamErr
}

func (s *scriptedSource) RecordInterruption(ctx context.Context, max time.Duration) ([]float32, error) {
	s.interruptMaxes = append(s.interruptMaxes, max)
	if len(s.interruptions) == 0 {
		return nil, nil
	}
	rec := s.interruptions[0]
	s.interruptions = s.interruptions[1:]
	return rec, nil
}

// scriptedTranscriber replays canned transcripts and records what it was
// asked to transcribe.
type scriptedTranscriber struct {
	stt.Unimplemented

	texts       []string
	fragments   []string
	err         error
	inputs      [][]float32
	streamedIn  [][]byte
	streamCalls int
}

func (t *scriptedTranscriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	t.inputs = append(t.inputs, samples)
	if t.err != nil {
		return "", t.err
	}
	if len(t.texts) == 0 {
		return "", nil
	}
	text := t.texts[0]
	t.texts = t.texts[1:]
	return text, nil
}

func (t *scriptedTranscriber) TranscribeStream(ctx context.Context, in <-chan []byte, out chan<- string) error {
	t.streamCalls++
	for chunk := range in {
		t.streamedIn = append(t.streamedIn, chunk)
	}
	if t.err != nil {
		return t.err
	}
	for _, frag := range t.fragments {
		select {
		case out <- frag:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func samplesOf(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.1
	}
	return s
}

func TestListenBatchStopsOnFirstBoundary(t *testing.T) {
	source := &scriptedSource{recordings: [][]float32{samplesOf(160)}}
	trans := &scriptedTranscriber{texts: []string{"How are you?"}}
	e := New(DefaultConfig(), source, trans, nil)

	text, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "How are you?" {
		t.Errorf("text = %q, want %q", text, "How are you?")
	}
	if len(trans.inputs) != 1 {
		t.Errorf("transcription passes = %d, want 1", len(trans.inputs))
	}
	if len(source.continuedFlags) != 1 || source.continuedFlags[0] {
		t.Errorf("continued flags = %v, want [false]", source.continuedFlags)
	}
}

func TestListenBatchRetriesUntilBoundary(t *testing.T) {
	source := &scriptedSource{recordings: [][]float32{samplesOf(160), samplesOf(320)}}
	trans := &scriptedTranscriber{texts: []string{
		"Hello there",
		"Hello there. How are you?",
	}}
	e := New(DefaultConfig(), source, trans, nil)

	text, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "Hello there. How are you?" {
		t.Errorf("text = %q", text)
	}
	want := []bool{false, true}
	if len(source.continuedFlags) != 2 || source.continuedFlags[0] != want[0] || source.continuedFlags[1] != want[1] {
		t.Errorf("continued flags = %v, want %v", source.continuedFlags, want)
	}
	// Each pass transcribes the whole accumulated buffer, so the second
	// pass sees both recordings.
	if got := len(trans.inputs[1]); got != 480 {
		t.Errorf("second pass buffer = %d samples, want 480", got)
	}
}

func TestListenBatchReturnsLastTextWhenTriesExhaust(t *testing.T) {
	source := &scriptedSource{recordings: [][]float32{samplesOf(160), samplesOf(160), samplesOf(160)}}
	trans := &scriptedTranscriber{texts: []string{"um so", "um so I was"}}
	cfg := DefaultConfig()
	cfg.MaxTries = 2
	e := New(cfg, source, trans, nil)

	text, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "um so I was" {
		t.Errorf("text = %q, want last transcription", text)
	}
	if len(trans.inputs) != 2 {
		t.Errorf("transcription passes = %d, want exactly MaxTries", len(trans.inputs))
	}
}

func TestListenBatchPropagatesTranscriberError(t *testing.T) {
	wantErr := errors.New("upstream down")
	source := &scriptedSource{recordings: [][]float32{samplesOf(160)}}
	trans := &scriptedTranscriber{err: wantErr}
	e := New(DefaultConfig(), source, trans, nil)

	_, err := e.Listen(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestListenStreamJoinsFragmentsInOrder(t *testing.T) {
	source := &scriptedSource{streamChunks: [][]byte{{1, 2}, {3, 4}}}
	trans := &scriptedTranscriber{fragments: []string{"hello", "there", "friend"}}
	cfg := DefaultConfig()
	cfg.Stream = true
	e := New(cfg, source, trans, nil)

	text, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "hello there friend" {
		t.Errorf("text = %q, want space-joined fragments", text)
	}
	if len(trans.streamedIn) != 2 {
		t.Errorf("chunks seen by transcriber = %d, want 2", len(trans.streamedIn))
	}
}

func TestListenStreamPropagatesWorkerError(t *testing.T) {
	wantErr := errors.New("device gone")
	source := &scriptedSource{streamErr: wantErr}
	trans := &scriptedTranscriber{}
	cfg := DefaultConfig()
	cfg.Stream = true
	e := New(cfg, source, trans, nil)

	_, err := e.Listen(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestInterruptListenDisabled(t *testing.T) {
	source := &scriptedSource{interruptions: [][]float32{samplesOf(160)}}
	cfg := DefaultConfig()
	cfg.ListenInterruptions = false
	e := New(cfg, source, &scriptedTranscriber{}, nil)

	text, err := e.InterruptListen(context.Background())
	if err != nil {
		t.Fatalf("InterruptListen: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if len(source.interruptMaxes) != 0 {
		t.Errorf("capture calls = %d, want 0 when disabled", len(source.interruptMaxes))
	}
}

func TestInterruptListenNoVoice(t *testing.T) {
	source := &scriptedSource{}
	e := New(DefaultConfig(), source, &scriptedTranscriber{}, nil)

	text, err := e.InterruptListen(context.Background())
	if err != nil {
		t.Fatalf("InterruptListen: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestInterruptListenDismissesFillerThenAccepts(t *testing.T) {
	// One second of audio per candidate at the default 16 kHz rate.
	source := &scriptedSource{interruptions: [][]float32{samplesOf(16000), samplesOf(16000)}}
	trans := &scriptedTranscriber{texts: []string{"Yes.", "Stop now!"}}
	e := New(DefaultConfig(), source, trans, nil)

	text, err := e.InterruptListen(context.Background())
	if err != nil {
		t.Fatalf("InterruptListen: %v", err)
	}
	if text != "stop now" {
		t.Errorf("text = %q, want %q", text, "stop now")
	}
	if len(source.interruptMaxes) != 2 {
		t.Fatalf("capture calls = %d, want 2", len(source.interruptMaxes))
	}
	// The dismissed candidate's duration comes off the budget.
	wantSecond := e.Config().interruptBudget() - time.Second
	if source.interruptMaxes[1] != wantSecond {
		t.Errorf("second budget = %v, want %v", source.interruptMaxes[1], wantSecond)
	}
}

func TestInterruptListenBudgetExhaustion(t *testing.T) {
	// Each filler candidate consumes half a second; the budget only covers
	// two of them.
	source := &scriptedSource{interruptions: [][]float32{
		samplesOf(8000), samplesOf(8000), samplesOf(8000),
	}}
	trans := &scriptedTranscriber{texts: []string{"hmm", "hmm", "stop"}}
	cfg := DefaultConfig()
	cfg.InterruptBudgetMs = 1000
	e := New(cfg, source, trans, nil)

	text, err := e.InterruptListen(context.Background())
	if err != nil {
		t.Fatalf("InterruptListen: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty after budget exhaustion", text)
	}
	if len(source.interruptMaxes) != 2 {
		t.Errorf("capture calls = %d, want 2", len(source.interruptMaxes))
	}
}

func TestInterruptListenStreamModeUsesStreamingTranscriber(t *testing.T) {
	samples := samplesOf(160)
	source := &scriptedSource{interruptions: [][]float32{samples}}
	trans := &scriptedTranscriber{fragments: []string{"stop", "it"}}
	cfg := DefaultConfig()
	cfg.Stream = true
	e := New(cfg, source, trans, nil)

	text, err := e.InterruptListen(context.Background())
	if err != nil {
		t.Fatalf("InterruptListen: %v", err)
	}
	if text != "stop it" {
		t.Errorf("text = %q, want %q", text, "stop it")
	}
	if trans.streamCalls != 1 {
		t.Errorf("stream calls = %d, want 1", trans.streamCalls)
	}
	// The whole candidate goes through as a single PCM16 chunk.
	if len(trans.streamedIn) != 1 {
		t.Fatalf("chunks = %d, want 1", len(trans.streamedIn))
	}
	wantChunk := audio.FloatToPCM16(samples)
	if len(trans.streamedIn[0]) != len(wantChunk) {
		t.Errorf("chunk size = %d, want %d", len(trans.streamedIn[0]), len(wantChunk))
	}
}

func TestNormalizeTranscript(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Yes.", "yes"},
		{"Stop now!", "stop now"},
		{"  Hmm...  ", "hmm"},
		{"You", "you"},
		{"", ""},
		{"don't", "dont"},
	}
	for _, tc := range cases {
		if got := normalizeTranscript(tc.in); got != tc.want {
			t.Errorf("normalizeTranscript(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizedFillerIsIgnorable(t *testing.T) {
	cfg := DefaultConfig()
	for _, raw := range []string{"Yes.", "YEAH", "Hmm.", "you"} {
		if !cfg.ignorable(normalizeTranscript(raw)) {
			t.Errorf("%q should normalize to a filler word", raw)
		}
	}
	if cfg.ignorable(normalizeTranscript("Stop now!")) {
		t.Error("genuine interruption dismissed as filler")
	}
}

func TestListenStreamEmptyStream(t *testing.T) {
	source := &scriptedSource{}
	trans := &scriptedTranscriber{}
	cfg := DefaultConfig()
	cfg.Stream = true
	e := New(cfg, source, trans, nil)

	text, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if strings.Contains(text, " ") {
		t.Errorf("empty stream must not produce separators")
	}
}

package ear

import "log/slog"

// Stage tags a lifecycle event emitted by the orchestrator.
type Stage string

const (
	// StageTranscribing is emitted before each batch transcription pass.
	StageTranscribing Stage = "turn.transcribing"
	// StageTranscribed is emitted after each batch transcription pass.
	StageTranscribed Stage = "turn.transcribed"
	// StageSegmenting is emitted before sentence boundary checking.
	StageSegmenting Stage = "turn.segmenting"
	// StageBoundaryDetected is emitted when the transcript closed a sentence.
	StageBoundaryDetected Stage = "turn.boundary_detected"
	// StageBoundaryMissing is emitted when no boundary was found; the extra
	// detail carries the remaining tries.
	StageBoundaryMissing Stage = "turn.no_boundary"

	// StageInterruptTranscribing is emitted before an interruption candidate
	// window is transcribed.
	StageInterruptTranscribing Stage = "interrupt.transcribing"
	// StageInterruptTranscribed is emitted with the candidate transcript.
	StageInterruptTranscribed Stage = "interrupt.transcribed"
	// StageInterruptDismissed is emitted when a candidate normalized to a
	// configured filler word.
	StageInterruptDismissed Stage = "interrupt.dismissed"

	// StageStateChanged is emitted by Session on state transitions.
	StageStateChanged Stage = "session.state_changed"
)

// Sink receives lifecycle events. Implementations must be non-blocking and
// must never panic; absence (a nil sink) is a valid, inert configuration.
type Sink interface {
	Log(stage Stage, detail, extra string)
}

// SlogSink adapts a slog.Logger to the Sink interface.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink. A nil logger selects slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log implements Sink.
func (s *SlogSink) Log(stage Stage, detail, extra string) {
	s.logger.Info(string(stage), "detail", detail, "further", extra)
}

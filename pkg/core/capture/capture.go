// Package capture defines the audio source and voice activity interfaces the
// listening orchestrator consumes, plus an energy-based VAD and a
// malgo-backed microphone source.
package capture

import (
	"context"
	"time"

	"github.com/earshot-dev/earshot/pkg/core/audio"
)

// DefaultEnergyThreshold is the RMS level below which audio is treated as
// silence.
const DefaultEnergyThreshold = 0.02

// Detector reports whether a window of samples contains speech.
type Detector interface {
	IsSpeech(samples []float32) bool
}

// EnergyDetector is a Detector based on RMS energy thresholding.
type EnergyDetector struct {
	threshold float64
}

// NewEnergyDetector creates an energy VAD. A zero threshold selects
// DefaultEnergyThreshold.
func NewEnergyDetector(threshold float64) *EnergyDetector {
	if threshold == 0 {
		threshold = DefaultEnergyThreshold
	}
	return &EnergyDetector{threshold: threshold}
}

// IsSpeech implements Detector.
func (d *EnergyDetector) IsSpeech(samples []float32) bool {
	return audio.RMSEnergy(samples) >= d.threshold
}

// Source produces audio for the listening orchestrator. Implementations may
// block on device or network I/O; all methods honor ctx at blocking points.
type Source interface {
	// RecordUser captures one utterance segment, returning once the trailing
	// silence window elapses. A fresh capture (continued=false) waits for the
	// first voiced frame before the silence countdown starts; a continuation
	// resumes an already-started utterance and counts down immediately.
	RecordUser(ctx context.Context, silence time.Duration, continued bool) ([]float32, error)

	// RecordUserStream is the producer half of streaming capture: it writes
	// PCM16 chunks to out until its own silence detection ends the utterance,
	// then returns. It must not close out (the orchestrator owns the
	// end-of-stream signal) and must select on ctx when sending.
	RecordUserStream(ctx context.Context, silence time.Duration, out chan<- []byte) error

	// RecordInterruption watches up to max for voiced audio while the system
	// is speaking. It returns (nil, nil) when no voice is found in the whole
	// window, otherwise the captured candidate samples.
	RecordInterruption(ctx context.Context, max time.Duration) ([]float32, error)
}

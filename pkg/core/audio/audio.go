// Package audio provides the sample buffers, PCM conversion and energy math
// shared by the capture and transcription layers.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Buffer accumulates float32 mono samples for the duration of one listening
// turn. It is owned by a single goroutine; the orchestrator never shares a
// turn's buffer across threads.
type Buffer struct {
	samples []float32
}

// NewBuffer creates an empty turn buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append concatenates a newly captured segment onto the buffer.
func (b *Buffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
}

// Samples returns the accumulated samples. The slice is the buffer's backing
// store; callers must not mutate it.
func (b *Buffer) Samples() []float32 {
	return b.samples
}

// Len returns the number of accumulated samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Duration returns the buffered audio length under the given format.
func (b *Buffer) Duration(cfg Config) time.Duration {
	return cfg.SampleDuration(len(b.samples))
}

// FloatToPCM16 converts float32 samples in [-1, 1] to little-endian 16-bit
// signed PCM bytes. Out-of-range samples are clamped.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16ToFloat converts little-endian 16-bit signed PCM bytes to float32
// samples in [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}

// RMSEnergy computes the root-mean-square energy of float32 samples.
// Returns a value between 0.0 and 1.0 for samples within [-1, 1].
func RMSEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// PeakAmplitude returns the maximum absolute amplitude of the samples.
func PeakAmplitude(samples []float32) float64 {
	var maxAbs float64
	for _, s := range samples {
		abs := math.Abs(float64(s))
		if abs > maxAbs {
			maxAbs = abs
		}
	}
	return maxAbs
}

package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps float32 samples in a 16-bit PCM RIFF/WAVE container using
// the given format. Batch transcription APIs expect a self-describing file
// rather than raw PCM.
func EncodeWAV(samples []float32, cfg Config) []byte {
	pcm := FloatToPCM16(samples)

	var buf bytes.Buffer
	blockAlign := cfg.Channels * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(cfg.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/earshot-dev/earshot/pkg/core/audio"
)

const (
	// micPeriodMs is the capture period requested from the device. 20ms
	// frames are short enough for responsive silence detection.
	micPeriodMs = 20

	// micFrameDepth bounds the frame channel. At 20ms per frame this holds
	// about five seconds of backlog before frames are dropped.
	micFrameDepth = 256

	// interruptionTail is the trailing silence that closes an interruption
	// candidate window once voice has been heard.
	interruptionTail = 700 * time.Millisecond
)

// MicConfig configures a microphone Source.
type MicConfig struct {
	// Audio is the capture format. Zero value selects audio.DefaultConfig.
	Audio audio.Config

	// VAD decides voice presence per frame. Nil selects an EnergyDetector
	// with the default threshold.
	VAD Detector
}

// Mic is a Source backed by the system microphone via malgo. A single device
// stream feeds an internal frame channel which the Record* methods consume;
// only one Record* call may be active at a time.
type Mic struct {
	cfg    audio.Config
	vad    Detector
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	frames chan []float32
}

// OpenMic initializes the capture device and starts streaming frames.
func OpenMic(cfg MicConfig) (*Mic, error) {
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio = audio.DefaultConfig()
	}
	if cfg.VAD == nil {
		cfg.VAD = NewEnergyDetector(0)
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	m := &Mic{
		cfg:    cfg.Audio,
		vad:    cfg.VAD,
		mctx:   mctx,
		frames: make(chan []float32, micFrameDepth),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Audio.Channels)
	deviceConfig.SampleRate = uint32(cfg.Audio.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = micPeriodMs

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			frame := audio.PCM16ToFloat(input)
			select {
			case m.frames <- frame:
			default:
				// Consumer is behind; drop the frame rather than block the
				// device thread.
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		mctx.Uninit()
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return nil, fmt.Errorf("start microphone: %w", err)
	}

	return m, nil
}

// Close stops the device and releases the audio context.
func (m *Mic) Close() error {
	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.mctx != nil {
		m.mctx.Uninit()
		m.mctx = nil
	}
	return nil
}

func (m *Mic) readFrame(ctx context.Context) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-m.frames:
		return frame, nil
	}
}

// drain discards frames buffered while nobody was listening.
func (m *Mic) drain() {
	for {
		select {
		case <-m.frames:
		default:
			return
		}
	}
}

// RecordUser implements Source.
func (m *Mic) RecordUser(ctx context.Context, silence time.Duration, continued bool) ([]float32, error) {
	if !continued {
		m.drain()
	}

	var (
		rec    []float32
		quiet  time.Duration
		voiced = continued
	)

	for {
		frame, err := m.readFrame(ctx)
		if err != nil {
			return nil, err
		}
		frameDur := m.cfg.SampleDuration(len(frame))
		speech := m.vad.IsSpeech(frame)

		if !voiced {
			if !speech {
				continue
			}
			voiced = true
		}

		rec = append(rec, frame...)

		if speech {
			quiet = 0
			continue
		}
		quiet += frameDur
		if quiet >= silence {
			return rec, nil
		}
	}
}

// RecordUserStream implements Source.
func (m *Mic) RecordUserStream(ctx context.Context, silence time.Duration, out chan<- []byte) error {
	m.drain()

	var (
		quiet  time.Duration
		voiced bool
	)

	for {
		frame, err := m.readFrame(ctx)
		if err != nil {
			return err
		}
		frameDur := m.cfg.SampleDuration(len(frame))
		speech := m.vad.IsSpeech(frame)

		if !voiced {
			if !speech {
				continue
			}
			voiced = true
		}

		select {
		case out <- audio.FloatToPCM16(frame):
		case <-ctx.Done():
			return ctx.Err()
		}

		if speech {
			quiet = 0
			continue
		}
		quiet += frameDur
		if quiet >= silence {
			return nil
		}
	}
}

// RecordInterruption implements Source.
func (m *Mic) RecordInterruption(ctx context.Context, max time.Duration) ([]float32, error) {
	m.drain()

	var (
		rec     []float32
		elapsed time.Duration
		quiet   time.Duration
		voiced  bool
	)

	for elapsed < max {
		frame, err := m.readFrame(ctx)
		if err != nil {
			return nil, err
		}
		frameDur := m.cfg.SampleDuration(len(frame))
		elapsed += frameDur
		speech := m.vad.IsSpeech(frame)

		if !voiced {
			if !speech {
				continue
			}
			voiced = true
		}

		rec = append(rec, frame...)

		if speech {
			quiet = 0
			continue
		}
		quiet += frameDur
		if quiet >= interruptionTail {
			return rec, nil
		}
	}

	if !voiced {
		return nil, nil
	}
	return rec, nil
}

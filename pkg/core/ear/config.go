package ear

import (
	"time"

	"github.com/earshot-dev/earshot/pkg/core/audio"
)

// Config holds all tunables for an Ear.
type Config struct {
	// SilenceMs is the trailing-silence window that signals end of
	// utterance. Default: 2000.
	SilenceMs int `json:"silence_ms"`

	// MaxTries is how many capture/transcribe/segment cycles the batch loop
	// runs before giving up on sentence completion. Default: 2.
	MaxTries int `json:"max_tries"`

	// Stream selects the streaming listening loop (overlapped capture and
	// transcription) instead of the batch loop. Default: false.
	Stream bool `json:"stream"`

	// ListenInterruptions enables interruption detection while the system
	// is speaking. DefaultConfig enables it.
	ListenInterruptions bool `json:"listen_interruptions"`

	// NotInterruptWords are normalized transcripts treated as false alarms
	// by the interruption loop. Default includes "you" because
	// Whisper-family models emit it for silence.
	NotInterruptWords []string `json:"not_interrupt_words"`

	// InterruptBudgetMs bounds total interruption listening per speaking
	// turn. Default: 100000.
	InterruptBudgetMs int `json:"interrupt_budget_ms"`

	// Audio is the PCM format shared with the capture source.
	Audio audio.Config `json:"audio"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SilenceMs:           2000,
		MaxTries:            2,
		Stream:              false,
		ListenInterruptions: true,
		NotInterruptWords:   []string{"you", "yes", "yeah", "hmm"},
		InterruptBudgetMs:   100_000,
		Audio:               audio.DefaultConfig(),
	}
}

// withDefaults fills zero fields so a partially specified Config behaves
// sensibly. ListenInterruptions is left as given: false is a valid choice.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SilenceMs == 0 {
		c.SilenceMs = d.SilenceMs
	}
	if c.MaxTries == 0 {
		c.MaxTries = d.MaxTries
	}
	if c.NotInterruptWords == nil {
		c.NotInterruptWords = d.NotInterruptWords
	}
	if c.InterruptBudgetMs == 0 {
		c.InterruptBudgetMs = d.InterruptBudgetMs
	}
	if c.Audio.SampleRate == 0 {
		c.Audio = d.Audio
	}
	return c
}

func (c Config) silence() time.Duration {
	return time.Duration(c.SilenceMs) * time.Millisecond
}

func (c Config) interruptBudget() time.Duration {
	return time.Duration(c.InterruptBudgetMs) * time.Millisecond
}

// ignorable reports whether a normalized transcript is a configured filler
// word.
func (c Config) ignorable(text string) bool {
	for _, w := range c.NotInterruptWords {
		if text == w {
			return true
		}
	}
	return false
}

// Package ear implements real-time spoken-dialogue turn-taking.
//
// The Ear ties a voice-activity-driven audio source, a transcription
// provider and a sentence boundary detector into a single "turn"
// abstraction: it decides when the speaker has finished, returns one
// finalized transcript per listening call, and separately watches for
// genuine interruptions while the system is speaking.
//
// # Components
//
//   - Ear: the orchestrator, with batch and streaming listening loops plus
//     the interruption loop
//   - Config: silence window, retry budget, interruption budget and
//     ignorable filler words
//   - Sink: optional stage-tagged event sink for lifecycle telemetry
//   - Metrics: optional Prometheus instrumentation
//   - Session: a conversational state machine alternating listening and
//     speaking with concurrent interruption watching
//
// # Listening modes
//
// Batch mode captures silence-bounded segments, transcribes the entire
// accumulated buffer each cycle, and confirms sentence completion with a
// bounded number of retries. Streaming mode overlaps capture and
// transcription through a pair of single-producer channels; the channel
// close is the end-of-stream sentinel, and both workers are always joined
// before the call returns.
//
// # Interruption detection
//
// While the system speaks, InterruptListen captures VAD-gated candidate
// windows within a time budget, transcribes them, and filters normalized
// filler words ("you", "yes", "yeah", "hmm") so noise and backchannels do
// not stop playback. Each dismissed window reduces the remaining budget by
// its own duration.
package ear

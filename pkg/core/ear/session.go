package ear

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState represents where a conversation session is in its turn cycle.
type SessionState int

const (
	// StateIdle is between turns.
	StateIdle SessionState = iota
	// StateListening is when the ear is capturing user speech.
	StateListening
	// StateProcessing is when the responder is generating a reply.
	StateProcessing
	// StateSpeaking is when the reply is being played, with interruption
	// watching active.
	StateSpeaking
	// StateInterrupted is entered when a genuine interruption cancels
	// playback.
	StateInterrupted
	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateProcessing:
		return "PROCESSING"
	case StateSpeaking:
		return "SPEAKING"
	case StateInterrupted:
		return "INTERRUPTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Speaker plays a reply out loud. Speak blocks until playback finishes or
// ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// ResponderFunc produces the reply for a finalized user transcript.
type ResponderFunc func(ctx context.Context, transcript string) (string, error)

// Turn is the outcome of one conversational turn.
type Turn struct {
	ID           string
	Transcript   string
	Reply        string
	Interruption string
	Interrupted  bool
	Duration     time.Duration
}

// Session alternates listening and speaking turns over a single Ear,
// watching for interruptions while the reply plays.
type Session struct {
	id      string
	ear     *Ear
	speaker Speaker
	respond ResponderFunc

	mu     sync.Mutex
	state  SessionState
	onTurn func(Turn)
}

// NewSession creates a conversation session. The speaker and responder may
// be nil, in which case turns end after listening.
func NewSession(e *Ear, speaker Speaker, respond ResponderFunc) *Session {
	return &Session{
		id:      uuid.NewString(),
		ear:     e,
		speaker: speaker,
		respond: respond,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetTurnHook installs a callback invoked with every completed turn, e.g.
// for persistence.
func (s *Session) SetTurnHook(hook func(Turn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTurn = hook
}

// Close marks the session terminal. A closed session refuses further turns.
func (s *Session) Close() {
	s.setState(StateClosed)
}

func (s *Session) setState(to SessionState) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to {
		s.ear.emit(StageStateChanged, from.String(), to.String())
	}
}

// ErrSessionClosed is returned when RunTurn is called on a closed session.
var ErrSessionClosed = errors.New("ear: session closed")

// RunTurn executes one full conversational turn: listen, respond, speak
// while watching for interruption. An empty transcript ends the turn before
// the responder runs.
func (s *Session) RunTurn(ctx context.Context) (*Turn, error) {
	if s.State() == StateClosed {
		return nil, ErrSessionClosed
	}

	start := time.Now()
	turn := Turn{ID: uuid.NewString()}

	s.setState(StateListening)
	transcript, err := s.ear.Listen(ctx)
	if err != nil {
		s.setState(StateIdle)
		return nil, err
	}
	turn.Transcript = transcript

	if strings.TrimSpace(transcript) == "" || s.respond == nil || s.speaker == nil {
		return s.finish(&turn, start), nil
	}

	s.setState(StateProcessing)
	reply, err := s.respond(ctx, transcript)
	if err != nil {
		s.setState(StateIdle)
		return nil, fmt.Errorf("respond: %w", err)
	}
	turn.Reply = reply

	s.setState(StateSpeaking)
	if err := s.speak(ctx, &turn); err != nil {
		s.setState(StateIdle)
		return nil, err
	}

	return s.finish(&turn, start), nil
}

// speak plays the reply while concurrently listening for interruption. A
// genuine interruption cancels playback; playback completion cancels the
// interruption watch. Both sides are joined before returning.
func (s *Session) speak(ctx context.Context, turn *Turn) error {
	speakCtx, cancelSpeak := context.WithCancel(ctx)
	defer cancelSpeak()
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	speakDone := make(chan error, 1)
	go func() {
		speakDone <- s.speaker.Speak(speakCtx, turn.Reply)
		stopWatch()
	}()

	interruption, watchErr := s.ear.InterruptListen(watchCtx)
	if interruption != "" {
		turn.Interruption = interruption
		turn.Interrupted = true
		s.setState(StateInterrupted)
		cancelSpeak()
	}

	speakErr := <-speakDone

	// Cancellations caused by the turn's own coordination are expected; a
	// cancelled parent ctx still surfaces.
	if watchErr != nil && !(errors.Is(watchErr, context.Canceled) && ctx.Err() == nil) {
		return fmt.Errorf("interrupt listen: %w", watchErr)
	}
	if speakErr != nil && !(errors.Is(speakErr, context.Canceled) && ctx.Err() == nil) {
		return fmt.Errorf("speak: %w", speakErr)
	}
	return nil
}

func (s *Session) finish(turn *Turn, start time.Time) *Turn {
	turn.Duration = time.Since(start)
	s.setState(StateIdle)

	s.mu.Lock()
	hook := s.onTurn
	s.mu.Unlock()
	if hook != nil {
		hook(*turn)
	}
	return turn
}

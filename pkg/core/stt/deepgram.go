package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/earshot-dev/earshot/pkg/core/audio"
)

const deepgramWSURL = "wss://api.deepgram.com/v1/listen"

// Deepgram is a streaming-only Transcriber over Deepgram's realtime
// WebSocket API. Whole-buffer transcription is not offered; callers in batch
// mode get ErrNotImplemented.
type Deepgram struct {
	Unimplemented

	apiKey string
	cfg    audio.Config
	model  string
	wsURL  string
	dialer *websocket.Dialer
}

// NewDeepgram creates a Deepgram provider. A zero cfg selects
// audio.DefaultConfig.
func NewDeepgram(apiKey string, cfg audio.Config) *Deepgram {
	if cfg.SampleRate == 0 {
		cfg = audio.DefaultConfig()
	}
	return &Deepgram{
		apiKey: apiKey,
		cfg:    cfg,
		model:  "nova-2",
		wsURL:  deepgramWSURL,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// deepgramMessage covers the realtime response shapes we care about:
// "Results" carries transcript alternatives, "Metadata" closes the stream
// after CloseStream is acknowledged.
type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// transcript returns the final transcript fragment carried by the message,
// or "" when the message is interim, empty, or not a result.
func (m *deepgramMessage) transcript() string {
	if m.Type != "Results" || !m.IsFinal {
		return ""
	}
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

// TranscribeStream implements Transcriber.
func (d *Deepgram) TranscribeStream(ctx context.Context, in <-chan []byte, out chan<- string) error {
	u, err := url.Parse(d.wsURL)
	if err != nil {
		return fmt.Errorf("parse websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", d.cfg.SampleRate))
	q.Set("channels", fmt.Sprintf("%d", d.cfg.Channels))
	q.Set("punctuate", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	conn, resp, err := d.dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return fmt.Errorf("deepgram connect (status %d): %s", resp.StatusCode, string(body))
			}
		}
		return fmt.Errorf("deepgram connect: %w", err)
	}
	defer conn.Close()

	// Writer: forward audio chunks, then ask the server to flush and close.
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- d.writeLoop(ctx, conn, in)
	}()

	// Reader runs on the calling goroutine until the server acknowledges the
	// end of the stream.
	readErr := d.readLoop(ctx, conn, out)

	if werr := <-writeErr; werr != nil && readErr == nil {
		readErr = werr
	}
	return readErr
}

func (d *Deepgram) writeLoop(ctx context.Context, conn *websocket.Conn, in <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-in:
			if !ok {
				msg := []byte(`{"type":"CloseStream"}`)
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return fmt.Errorf("close stream: %w", err)
				}
				return nil
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return fmt.Errorf("send audio: %w", err)
			}
		}
	}
}

func (d *Deepgram) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- string) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read transcript: %w", err)
		}

		var msg deepgramMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // non-JSON frames are ignored
		}

		switch msg.Type {
		case "Metadata":
			// Sent after CloseStream is processed; the stream is complete.
			return nil
		case "Results":
			if frag := msg.transcript(); frag != "" {
				select {
				case out <- frag:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

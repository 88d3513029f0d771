// Package session owns the lifetime of one admitted device connection: the
// inbound microphone path (filter, then recognition) and the outbound speech
// path (boost, encode, send). Every session carries its own filter and
// framer state; nothing on the audio path is shared between sessions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/soundbarrier/auricle/internal/observe"
	"github.com/soundbarrier/auricle/pkg/audio"
	"github.com/soundbarrier/auricle/pkg/codec"
	"github.com/soundbarrier/auricle/pkg/store"
)

// Recognizer consumes filtered microphone audio. Speech recognition itself
// lives behind this interface; the session only guarantees that every
// sample handed over has been through the input filter.
type Recognizer interface {
	Consume(ctx context.Context, sessionID uuid.UUID, pcm []int16) error
}

// Session is one live device connection. All audio state is owned by the
// session and dies with it. Speak is safe for concurrent use; the read loop
// runs on the admitting goroutine.
type Session struct {
	id        uuid.UUID
	user      *store.User
	client    *store.Client
	conn      *websocket.Conn
	startedAt time.Time

	mic     *audio.MicFilter
	volume  float64
	prompt  string
	metrics *observe.Metrics

	// mu guards the framer and outbound writes so concurrent Speak calls
	// cannot interleave partial frames.
	mu     sync.Mutex
	framer *codec.Framer

	// oddTail holds a trailing byte from a byte-misaligned Speak call,
	// completing its sample with the first byte of the next call.
	oddTail []byte
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// User returns the authenticated identity behind the session.
func (s *Session) User() *store.User { return s.user }

// Client returns the session's credential-scoped store client.
func (s *Session) Client() *store.Client { return s.client }

// Prompt returns the system prompt assembled for this session.
func (s *Session) Prompt() string { return s.prompt }

// StartedAt returns when the session was admitted.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Speak queues raw little-endian PCM for playback on the device. The audio
// is volume-boosted, cut into codec frames, and each encoded frame is sent
// as one binary websocket message. Bytes short of a full frame are held for
// the next call; that includes a trailing byte from a call whose length is
// not sample-aligned, so chunking never shifts the sample stream.
func (s *Session) Speak(ctx context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := pcm
	if len(s.oddTail) > 0 {
		joined := make([]byte, 0, len(s.oddTail)+len(pcm))
		joined = append(joined, s.oddTail...)
		joined = append(joined, pcm...)
		raw = joined
		s.oddTail = nil
	}
	if len(raw)%2 != 0 {
		s.oddTail = []byte{raw[len(raw)-1]}
		raw = raw[:len(raw)-1]
	}

	samples := audio.BytesToInt16s(raw)
	audio.BoostInPlace(samples, s.volume)

	for _, frame := range s.framer.Append(audio.Int16sToBytes(samples)) {
		if err := s.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
			return fmt.Errorf("session: write frame: %w", err)
		}
		s.metrics.FramesEncoded.Add(ctx, 1)
	}
	return nil
}

// readLoop pumps inbound messages until the connection or ctx ends. Binary
// messages are microphone PCM; anything else is ignored.
func (s *Session) readLoop(ctx context.Context, rec Recognizer) error {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary {
			continue
		}

		samples := audio.BytesToInt16s(data)
		if len(samples) == 0 {
			continue
		}
		s.mic.ProcessInPlace(samples)
		s.metrics.MicSamplesProcessed.Add(ctx, int64(len(samples)))

		if rec != nil {
			if err := rec.Consume(ctx, s.id, samples); err != nil {
				return fmt.Errorf("session: recognizer: %w", err)
			}
		}
	}
}

// close releases the session's audio state and the connection.
func (s *Session) close() {
	s.mu.Lock()
	s.framer.Reset()
	s.oddTail = nil
	s.mu.Unlock()
	_ = s.conn.Close(websocket.StatusNormalClosure, "session ended")
}

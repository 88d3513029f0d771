package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/soundbarrier/auricle/internal/gate"
	"github.com/soundbarrier/auricle/internal/observe"
	"github.com/soundbarrier/auricle/internal/prompt"
	"github.com/soundbarrier/auricle/pkg/audio"
	"github.com/soundbarrier/auricle/pkg/codec"
)

// EncoderFactory creates a fresh codec encoder for one session and reports
// the frame size in bytes it expects. Each session gets its own encoder so
// codec state never crosses connections.
type EncoderFactory func() (enc codec.Encoder, frameSize int, err error)

// ManagerConfig holds all dependencies for a [Manager].
type ManagerConfig struct {
	// NewEncoder builds the per-session codec encoder. Required.
	NewEncoder EncoderFactory

	// Recognizer receives filtered microphone audio. Optional.
	Recognizer Recognizer

	// InputSampleRate is the microphone sample rate in Hz.
	InputSampleRate int

	// Volume is the default playback boost factor. A device profile with a
	// positive volume overrides it per session.
	Volume float64

	// HistoryLimit bounds how many past exchanges feed the session prompt.
	HistoryLimit int

	// Metrics defaults to [observe.DefaultMetrics] when nil.
	Metrics *observe.Metrics
}

// Manager runs the session layer behind the gate. It implements
// [gate.Admitter]: each admitted connection becomes one [Session] that lives
// on the admitting goroutine until the connection ends.
//
// All exported methods are safe for concurrent use.
type Manager struct {
	newEncoder   EncoderFactory
	recognizer   Recognizer
	inputRate    int
	volume       float64
	historyLimit int
	metrics      *observe.Metrics

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager with the given dependencies.
func NewManager(cfg ManagerConfig) *Manager {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Manager{
		newEncoder:   cfg.NewEncoder,
		recognizer:   cfg.Recognizer,
		inputRate:    cfg.InputSampleRate,
		volume:       cfg.Volume,
		historyLimit: cfg.HistoryLimit,
		metrics:      m,
	}
}

// Admit runs one session over an admitted connection and blocks until it
// ends. The session owns its filter and framer; both are released before
// Admit returns.
func (m *Manager) Admit(ctx context.Context, conn *websocket.Conn, uctx gate.UpgradeContext) {
	enc, frameSize, err := m.newEncoder()
	if err != nil {
		slog.Error("session: create encoder", "session_id", uctx.SessionID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "codec unavailable")
		return
	}

	sess := &Session{
		id:        uctx.SessionID,
		user:      uctx.User,
		client:    uctx.Client,
		conn:      conn,
		startedAt: uctx.RequestedAt,
		mic:       audio.NewMicFilter(m.inputRate),
		framer:    codec.NewFramer(&meteredEncoder{inner: enc, metrics: m.metrics}, frameSize),
		volume:    m.volume,
		metrics:   m.metrics,
	}

	// The prompt is best-effort: a store fault here should not tear down an
	// already-authenticated connection.
	asm := prompt.NewAssembler(uctx.Client, m.historyLimit)
	pc, err := asm.Assemble(ctx, uctx.User.ID, uctx.SessionID.String())
	if err != nil {
		slog.Warn("session: assemble prompt", "session_id", uctx.SessionID, "error", err)
	}
	sess.prompt = prompt.Render(pc)
	if pc != nil && pc.Profile != nil && pc.Profile.Volume > 0 {
		sess.volume = pc.Profile.Volume
	}

	m.register(sess)
	m.metrics.ActiveSessions.Add(ctx, 1)
	logger := observe.SessionLogger(ctx, sess.id)
	logger.Info("session started",
		"user_id", uctx.User.ID,
		"volume", sess.volume,
		"frame_size", frameSize,
	)
	started := time.Now()

	defer func() {
		sess.close()
		m.unregister(sess.id)
		m.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)
		logger.Info("session ended", "duration", time.Since(started))
	}()

	if err := sess.readLoop(ctx, m.recognizer); err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return
		}
		if ctx.Err() != nil {
			return
		}
		logger.Warn("session: read loop ended", "error", err)
	}
}

// Get returns the live session with the given id, or nil.
func (m *Manager) Get(id uuid.UUID) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[uuid.UUID]*Session)
	}
	m.sessions[s.id] = s
}

func (m *Manager) unregister(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// meteredEncoder wraps a codec encoder with frame outcome counters.
type meteredEncoder struct {
	inner   codec.Encoder
	metrics *observe.Metrics
}

func (e *meteredEncoder) Encode(pcm []byte) ([]byte, error) {
	out, err := e.inner.Encode(pcm)
	if err != nil {
		e.metrics.FrameEncodeFailures.Add(context.Background(), 1)
		return nil, err
	}
	return out, nil
}

package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/metrics"
	"github.com/yoockh/neurasense/internal/utils"
)

// StreamSession is one live websocket stream. Buffer is owned by the
// session's reader goroutine; the counters may be read from anywhere.
type StreamSession struct {
	ID        string
	Preset    string
	StartedAt time.Time
	Buffer    *analysis.IngestBuffer
	Pipeline  *analysis.Pipeline

	packets atomic.Int64
	windows atomic.Int64
	errors  atomic.Int64
	strokes atomic.Int64
}

func (s *StreamSession) CountPacket() { s.packets.Add(1) }
func (s *StreamSession) CountError()  { s.errors.Add(1) }

func (s *StreamSession) CountWindow(stroke bool) {
	s.windows.Add(1)
	if stroke {
		s.strokes.Add(1)
	}
}

// SessionInfo is the externally visible view of a session.
type SessionInfo struct {
	ID        string    `json:"session_id"`
	Preset    string    `json:"preset"`
	StartedAt time.Time `json:"started_at"`
	Packets   int64     `json:"packets"`
	Windows   int64     `json:"windows"`
	Errors    int64     `json:"errors"`
	Strokes   int64     `json:"strokes"`
}

func (s *StreamSession) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		Preset:    s.Preset,
		StartedAt: s.StartedAt,
		Packets:   s.packets.Load(),
		Windows:   s.windows.Load(),
		Errors:    s.errors.Load(),
		Strokes:   s.strokes.Load(),
	}
}

type SessionService interface {
	Start(ctx context.Context, preset string) (*StreamSession, error)
	Get(sessionID string) (*StreamSession, error)
	End(sessionID string) (*StreamSession, error)
	List() []SessionInfo
	ActiveCount() int
}

type sessionService struct {
	presets PresetService

	mu       sync.RWMutex
	sessions map[string]*StreamSession
}

func NewSessionService(presets PresetService) SessionService {
	return &sessionService{presets: presets, sessions: make(map[string]*StreamSession)}
}

func (s *sessionService) Start(ctx context.Context, preset string) (*StreamSession, error) {
	cfg, err := s.presets.Resolve(ctx, preset)
	if err != nil {
		return nil, err
	}
	pipe, err := analysis.NewPipeline(cfg)
	if err != nil {
		return nil, err
	}

	ss := &StreamSession{
		ID:        uuid.NewString(),
		Preset:    cfg.Preset,
		StartedAt: time.Now().UTC(),
		Buffer:    analysis.NewIngestBuffer(cfg.BufferSize),
		Pipeline:  pipe,
	}

	s.mu.Lock()
	s.sessions[ss.ID] = ss
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	return ss, nil
}

func (s *sessionService) Get(sessionID string) (*StreamSession, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	s.mu.RLock()
	ss, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	return ss, nil
}

// End unregisters the session and discards its partial window.
func (s *sessionService) End(sessionID string) (*StreamSession, error) {
	const op = "SessionService.End"

	s.mu.Lock()
	ss, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	ss.Buffer.Reset()
	metrics.SetActiveSessions(n)
	return ss, nil
}

func (s *sessionService) List() []SessionInfo {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, ss := range s.sessions {
		out = append(out, ss.Info())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (s *sessionService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

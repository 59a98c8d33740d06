package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clarabennett2626/mayapilot/internal/source"
)

// Streamer owns at most one watch session at a time.
type Streamer struct {
	mu      sync.Mutex
	session *Session
	logger  *slog.Logger
	opts    []SessionOption
}

// NewStreamer returns a streamer whose sessions use opts.
func NewStreamer(logger *slog.Logger, opts ...SessionOption) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		logger: logger,
		opts:   append([]SessionOption{WithLogger(logger)}, opts...),
	}
}

// Start begins a new session. It fails with ErrAlreadyWatching until the
// previous session has delivered its last batch.
func (st *Streamer) Start(ctx context.Context, src source.Source, find SinkFinder, schedule Scheduler) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.active() {
		return nil, ErrAlreadyWatching
	}
	s := NewSession(src, find, schedule, st.opts...)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	st.session = s
	return s, nil
}

// Stop ends the active session.
func (st *Streamer) Stop() error {
	st.mu.Lock()
	s := st.session
	st.mu.Unlock()

	if s == nil || !s.Reading() {
		return ErrNotWatching
	}
	s.Stop()
	return nil
}

// Watching reports whether a session is active. A stopped session stays
// active until its consumer has returned.
func (st *Streamer) Watching() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active()
}

func (st *Streamer) active() bool {
	if st.session == nil {
		return false
	}
	select {
	case <-st.session.Done():
		return false
	default:
		return true
	}
}

// Session returns the most recent session, or nil.
func (st *Streamer) Session() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session
}

// Push queues text on the active session. Without one the text is dropped.
func (st *Streamer) Push(text string) {
	st.mu.Lock()
	s := st.session
	st.mu.Unlock()

	if s == nil || !s.Watching() {
		st.logger.Debug("no active session, dropping message", "text", text)
		return
	}
	s.Push(text)
}

// Package stream moves lines from a source into a display sink: a producer
// goroutine feeds a queue and a consumer goroutine flushes it in batches
// through the UI scheduler.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clarabennett2626/mayapilot/internal/source"
)

const (
	// DefaultFlushInterval is how often the consumer drains the queue.
	DefaultFlushInterval = 100 * time.Millisecond

	// DefaultHostName names the host in session notices.
	DefaultHostName = "maya"

	// ReasonCancelled ends a session stopped by the user.
	ReasonCancelled = "User Cancelled"
	// ReasonSourceClosed ends a session whose source ran out of lines.
	ReasonSourceClosed = "log source closed"
)

var (
	// ErrAlreadyWatching is returned when a session is already active.
	ErrAlreadyWatching = errors.New("already watching")
	// ErrNotWatching is returned when there is no session to stop.
	ErrNotWatching = errors.New("not watching")
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithFlushInterval overrides DefaultFlushInterval.
func WithFlushInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

// WithHostName overrides DefaultHostName in notices.
func WithHostName(name string) SessionOption {
	return func(s *Session) { s.host = name }
}

// Session is one watch of a line source. Start it once; after it has
// finished, create a new one.
type Session struct {
	src      source.Source
	find     SinkFinder
	schedule Scheduler
	queue    *Queue
	logger   *slog.Logger
	interval time.Duration
	host     string

	reading  atomic.Bool
	watching atomic.Bool
	started  atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	done     chan struct{}
}

// NewSession prepares a session reading from src and writing to the sink
// found by find, with every sink task run through schedule.
func NewSession(src source.Source, find SinkFinder, schedule Scheduler, opts ...SessionOption) *Session {
	s := &Session{
		src:      src,
		find:     find,
		schedule: schedule,
		queue:    NewQueue(),
		logger:   slog.Default(),
		interval: DefaultFlushInterval,
		host:     DefaultHostName,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.schedule == nil {
		s.schedule = Immediate
	}
	if s.interval <= 0 {
		s.interval = DefaultFlushInterval
	}
	return s
}

// Start starts the source and both goroutines, then returns.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already started")
	}
	if err := s.src.Start(ctx); err != nil {
		close(s.done)
		return fmt.Errorf("starting log source: %w", err)
	}

	s.reading.Store(true)
	s.watching.Store(true)

	s.wg.Add(2)
	go s.produce(ctx)
	go s.consume()
	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	s.logger.Info("watching started", "host", s.host)
	return nil
}

// Stop asks the producer to finish. It returns at once; use Done to wait.
func (s *Session) Stop() {
	s.reading.Store(false)
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once both goroutines have returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Reading reports whether the producer is still reading.
func (s *Session) Reading() bool { return s.reading.Load() }

// Watching reports whether the consumer is still draining.
func (s *Session) Watching() bool { return s.watching.Load() }

// Push queues a line for display, adding the trailing newline if missing.
func (s *Session) Push(text string) {
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	s.queue.PushText(text)
}

func (s *Session) produce(ctx context.Context) {
	defer s.wg.Done()

	reason := ReasonCancelled
	lines := s.src.Lines()
	errs := s.src.Errors()

loop:
	for s.reading.Load() {
		select {
		case <-s.stop:
			break loop
		case <-ctx.Done():
			break loop
		case entry, ok := <-lines:
			if !ok {
				reason = ReasonSourceClosed
				s.drainErrors(errs)
				break loop
			}
			s.queue.PushText(entry.Line + "\n")
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("log source error", "error", err)
			s.queue.PushText(fmt.Sprintf("ERROR: %v\n", err))
		}
	}

	s.reading.Store(false)
	s.queue.PushText(fmt.Sprintf("# Stopped watching %s: %s\n", s.host, reason))
	s.queue.Push(Message{Sentinel: true})
	s.watching.Store(false)

	if err := s.src.Stop(); err != nil {
		s.logger.Warn("stopping log source", "error", err)
	}
	s.logger.Info("watching stopped", "host", s.host, "reason", reason)
}

// drainErrors reports errors a closed source left behind, such as its exit
// status.
func (s *Session) drainErrors(errs <-chan error) {
	for errs != nil {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			s.logger.Warn("log source error", "error", err)
			s.queue.PushText(fmt.Sprintf("ERROR: %v\n", err))
		default:
			return
		}
	}
}

func (s *Session) consume() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		// Everything the producer pushes lands before watching is cleared, so
		// a drain after seeing it cleared is the final one.
		last := !s.watching.Load()

		var batch strings.Builder
		sentinel := false
		for _, m := range s.queue.Drain() {
			if m.Sentinel {
				sentinel = true
				break
			}
			batch.WriteString(m.Text)
		}
		if batch.Len() > 0 {
			s.deliver(batch.String())
		}
		if sentinel || last {
			return
		}
	}
}

func (s *Session) deliver(text string) {
	s.schedule(func() {
		sink, ok := s.find()
		if !ok {
			s.logger.Debug("display sink not found, dropping batch", "bytes", len(text))
			return
		}
		sink.AppendAndTrim(text)
	})
	s.schedule(func() {
		if sink, ok := s.find(); ok {
			sink.ScrollToEnd()
		}
	})
}

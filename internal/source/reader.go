package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultBufferSize is the default capacity for the lines channel.
const DefaultBufferSize = 1000

// ReaderOption configures a ReaderSource.
type ReaderOption func(*ReaderSource)

// WithBufferSize sets the capacity of the lines channel.
func WithBufferSize(n int) ReaderOption {
	return func(s *ReaderSource) { s.bufSize = n }
}

// WithBackpressure sets the backpressure strategy.
func WithBackpressure(bp BackpressureStrategy) ReaderOption {
	return func(s *ReaderSource) { s.backpressure = bp }
}

// WithName sets the Source field of emitted entries.
func WithName(name string) ReaderOption {
	return func(s *ReaderSource) { s.name = name }
}

// ReaderSource reads newline-terminated lines from an io.Reader. It is the
// reading half of ProcessSource.
type ReaderSource struct {
	reader       io.Reader
	name         string
	lines        chan LogEntry
	errs         chan error
	bufSize      int
	backpressure BackpressureStrategy
	cancel       context.CancelFunc
	once         sync.Once
	started      bool
	done         chan struct{}
}

// NewReaderSource creates a source reading lines from r.
func NewReaderSource(r io.Reader, opts ...ReaderOption) *ReaderSource {
	s := &ReaderSource{
		reader:       r,
		name:         "reader",
		bufSize:      DefaultBufferSize,
		backpressure: Block,
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.bufSize < 0 {
		s.bufSize = 0
	}
	s.lines = make(chan LogEntry, s.bufSize)
	s.errs = make(chan error, 1)
	return s
}

// IsPipe reports whether stdin appears to be a pipe (not a terminal).
func IsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// Lines returns the channel of log entries.
func (s *ReaderSource) Lines() <-chan LogEntry { return s.lines }

// Errors returns the channel of errors.
func (s *ReaderSource) Errors() <-chan error { return s.errs }

// Done is closed once reading has finished and both channels are closed.
func (s *ReaderSource) Done() <-chan struct{} { return s.done }

// Start reads lines in the background until ctx is cancelled or EOF.
func (s *ReaderSource) Start(ctx context.Context) error {
	if s.started {
		return fmt.Errorf("%s source already started", s.name)
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

func (s *ReaderSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.errs)
	defer close(s.lines)

	scanner := bufio.NewScanner(s.reader)
	// Support very long log lines (up to 1 MB).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		entry := LogEntry{
			Line:   scanner.Text(),
			Source: s.name,
		}
		if !emit(ctx, s.lines, entry, s.backpressure) {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case s.errs <- fmt.Errorf("%s read error: %w", s.name, err):
		default:
		}
	}
}

// Stop cancels reading and waits for the reader goroutine to finish. A read
// blocked inside the underlying reader only returns once that reader yields
// data or is closed.
func (s *ReaderSource) Stop() error {
	if !s.started {
		return nil
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
	return nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// ProcessConfig describes the follow process to spawn.
type ProcessConfig struct {
	// Command is the argv of the follow process, e.g.
	// ["tail", "-n", "0", "-f", "/home/me/.mayaHistory"].
	Command []string
	// Dir is the working directory; empty uses the current one.
	Dir string
	// BufferSize is the capacity of the lines channel; 0 uses
	// DefaultBufferSize.
	BufferSize int
	// Backpressure decides what happens to output nobody reads in time.
	Backpressure BackpressureStrategy
}

// ProcessSource spawns a line-following process and yields its output.
// Standard error is combined into the same stream as standard output.
type ProcessSource struct {
	config ProcessConfig

	cmd      *exec.Cmd
	reader   *ReaderSource
	pipe     *os.File
	lines    chan LogEntry
	errs     chan error
	stopping atomic.Bool
	once     sync.Once
	done     chan struct{}
}

// NewProcessSource creates a source for the given command.
func NewProcessSource(cfg ProcessConfig) *ProcessSource {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &ProcessSource{
		config: cfg,
		lines:  make(chan LogEntry, cfg.BufferSize),
		errs:   make(chan error, 4),
		done:   make(chan struct{}),
	}
}

func (p *ProcessSource) Lines() <-chan LogEntry { return p.lines }
func (p *ProcessSource) Errors() <-chan error   { return p.errs }

// Start spawns the process. A spawn failure is returned directly.
func (p *ProcessSource) Start(ctx context.Context) error {
	if len(p.config.Command) == 0 {
		return errors.New("follow command is empty")
	}
	if p.cmd != nil {
		return errors.New("follow process already started")
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating pipe: %w", err)
	}

	cmd := exec.Command(p.config.Command[0], p.config.Command[1:]...)
	cmd.Dir = p.config.Dir
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return fmt.Errorf("starting %q: %w", strings.Join(p.config.Command, " "), err)
	}
	// The child holds its own copy of the write end; closing ours lets the
	// reader see EOF once the process exits.
	pw.Close()

	p.cmd = cmd
	p.pipe = pr
	p.reader = NewReaderSource(pr,
		WithName(p.config.Command[0]),
		WithBufferSize(p.config.BufferSize),
		WithBackpressure(p.config.Backpressure),
	)
	if err := p.reader.Start(ctx); err != nil {
		p.kill()
		pr.Close()
		return err
	}

	go p.forward()
	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.done:
		}
	}()
	return nil
}

// forward relays reader output, then reports how the process exited before
// closing the channels, so a consumer that sees Lines close can still drain
// the exit error.
func (p *ProcessSource) forward() {
	defer close(p.done)
	defer close(p.lines)
	defer close(p.errs)

	// Stop drains lines, so a blocked send cannot outlive it.
	for entry := range p.reader.Lines() {
		emit(context.Background(), p.lines, entry, p.config.Backpressure)
	}
	for err := range p.reader.Errors() {
		p.sendError(err)
	}

	err := p.cmd.Wait()
	p.pipe.Close()
	if err != nil && !p.stopping.Load() {
		p.sendError(fmt.Errorf("follow process exited: %w", err))
	}
}

// Stop terminates the process and waits for its output to be drained.
func (p *ProcessSource) Stop() error {
	if p.cmd == nil {
		return nil
	}
	p.once.Do(func() {
		p.stopping.Store(true)
		p.kill()
	})
	// Stop may be called while nobody reads Lines any more.
	lines := p.lines
	for {
		select {
		case <-p.done:
			return nil
		case _, ok := <-lines:
			if !ok {
				lines = nil
			}
		}
	}
}

func (p *ProcessSource) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func (p *ProcessSource) sendError(err error) {
	select {
	case p.errs <- err:
	default:
	}
}

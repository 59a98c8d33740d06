package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often FileSource re-checks the file in case a
// change notification was missed.
const DefaultPollInterval = time.Second

// FileConfig holds configuration for a file source.
type FileConfig struct {
	// Path is the file to follow.
	Path string
	// FromEnd starts following at the current end of the file, like
	// `tail -n 0 -f`. Otherwise the existing content is read first.
	FromEnd bool
	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration
	// BufferSize is the capacity of the lines channel; 0 uses
	// DefaultBufferSize.
	BufferSize int
	// Backpressure decides what happens to lines nobody reads in time.
	Backpressure BackpressureStrategy
}

// FileSource follows a single file natively with fsnotify, surviving
// truncation and rotation. Only complete lines are emitted; a trailing
// fragment waits until its newline arrives.
type FileSource struct {
	config  FileConfig
	path    string
	lines   chan LogEntry
	errs    chan error
	cancel  context.CancelFunc
	once    sync.Once
	stopped chan struct{}

	file    *os.File
	reader  *bufio.Reader
	offset  int64
	pending strings.Builder
}

// NewFileSource creates a new file source from the given config.
func NewFileSource(cfg FileConfig) *FileSource {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &FileSource{
		config:  cfg,
		lines:   make(chan LogEntry, cfg.BufferSize),
		errs:    make(chan error, 32),
		stopped: make(chan struct{}),
	}
}

func (fs *FileSource) Lines() <-chan LogEntry { return fs.lines }
func (fs *FileSource) Errors() <-chan error   { return fs.errs }

// Start opens the file and begins following it.
func (fs *FileSource) Start(ctx context.Context) error {
	if fs.cancel != nil {
		return errors.New("file source already started")
	}
	abs, err := filepath.Abs(fs.config.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", fs.config.Path, err)
	}
	fs.path = abs

	if err := fs.open(fs.config.FromEnd); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fs.file.Close()
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory so a replaced file is noticed.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		fs.file.Close()
		return fmt.Errorf("watching directory %s: %w", filepath.Dir(abs), err)
	}

	ctx, fs.cancel = context.WithCancel(ctx)
	go fs.follow(ctx, watcher)
	return nil
}

// Stop cancels following and waits for the goroutine to finish.
func (fs *FileSource) Stop() error {
	if fs.cancel == nil {
		return nil
	}
	fs.once.Do(fs.cancel)
	<-fs.stopped
	return nil
}

func (fs *FileSource) open(atEnd bool) error {
	f, err := os.Open(fs.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", fs.path, err)
	}
	var off int64
	if atEnd {
		off, err = f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return fmt.Errorf("seeking in %s: %w", fs.path, err)
		}
	}
	if fs.file != nil {
		fs.file.Close()
	}
	fs.file = f
	fs.reader = bufio.NewReaderSize(f, 64*1024)
	fs.offset = off
	fs.pending.Reset()
	return nil
}

func (fs *FileSource) follow(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(fs.stopped)
	defer close(fs.errs)
	defer close(fs.lines)
	defer watcher.Close()
	defer func() { fs.file.Close() }()

	if !fs.readAvailable(ctx) {
		return
	}

	ticker := time.NewTicker(fs.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fs.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// Drain what the old file still holds before switching.
				if !fs.readAvailable(ctx) {
					return
				}
				fs.reopenIfReplaced()
			}
			if !fs.check(ctx) {
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fs.sendError(fmt.Errorf("watching %s: %w", fs.path, err))

		case <-ticker.C:
			fs.reopenIfReplaced()
			if !fs.check(ctx) {
				return
			}
		}
	}
}

// check handles truncation and then reads whatever is new.
func (fs *FileSource) check(ctx context.Context) bool {
	stat, err := fs.file.Stat()
	if err == nil && stat.Size() < fs.offset {
		if _, err := fs.file.Seek(0, io.SeekStart); err != nil {
			fs.sendError(fmt.Errorf("seek after truncation %s: %w", fs.path, err))
			return true
		}
		fs.reader.Reset(fs.file)
		fs.offset = 0
		fs.pending.Reset()
	}
	return fs.readAvailable(ctx)
}

// reopenIfReplaced switches to a new file at the same path, read from its
// start.
func (fs *FileSource) reopenIfReplaced() {
	stat, err := os.Stat(fs.path)
	if err != nil {
		return
	}
	cur, err := fs.file.Stat()
	if err == nil && os.SameFile(cur, stat) {
		return
	}
	if err := fs.open(false); err != nil {
		fs.sendError(err)
	}
}

// readAvailable emits every complete line up to the current end of file. It
// returns false if ctx was cancelled while emitting.
func (fs *FileSource) readAvailable(ctx context.Context) bool {
	for {
		chunk, err := fs.reader.ReadString('\n')
		fs.offset += int64(len(chunk))
		if len(chunk) > 0 {
			if !strings.HasSuffix(chunk, "\n") {
				fs.pending.WriteString(chunk)
			} else {
				fs.pending.WriteString(strings.TrimRight(chunk, "\r\n"))
				line := fs.pending.String()
				fs.pending.Reset()
				if !emit(ctx, fs.lines, LogEntry{Line: line, Source: fs.path}, fs.config.Backpressure) {
					return false
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fs.sendError(fmt.Errorf("reading %s: %w", fs.path, err))
			}
			return true
		}
	}
}

func (fs *FileSource) sendError(err error) {
	select {
	case fs.errs <- err:
	default:
	}
}

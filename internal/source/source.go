// Package source provides line sources the log streamer follows: an external
// follow process, a native file follower, and plain readers.
package source

import (
	"context"
	"fmt"
	"strings"
)

// LogEntry represents a single log line with metadata.
type LogEntry struct {
	// Line is the raw log line text, without its newline.
	Line string
	// Source identifies which file/process produced this entry.
	Source string
}

// Source yields lines until stopped.
type Source interface {
	// Lines returns a channel that emits log entries. It is closed when the
	// source has nothing more to read.
	Lines() <-chan LogEntry
	// Errors returns a channel that emits errors encountered during reading.
	Errors() <-chan error
	// Start begins reading in the background.
	Start(ctx context.Context) error
	// Stop shuts the source down and waits for its goroutines.
	Stop() error
}

const (
	// Block waits until a reader consumes a line before accepting more.
	Block BackpressureStrategy = iota
	// DropOldest discards the oldest unread line when the buffer is full.
	DropOldest
)

// BackpressureStrategy controls behaviour when a lines channel is full.
type BackpressureStrategy int

// ParseBackpressure converts a setting value ("block" or "drop_oldest").
func ParseBackpressure(name string) (BackpressureStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "block":
		return Block, nil
	case "drop_oldest":
		return DropOldest, nil
	}
	return Block, fmt.Errorf("unknown backpressure strategy %q", name)
}

// emit sends entry on lines following bp. It returns false if ctx was
// cancelled first.
func emit(ctx context.Context, lines chan LogEntry, entry LogEntry, bp BackpressureStrategy) bool {
	if bp == DropOldest {
		select {
		case lines <- entry:
			return true
		default:
		}
		// Channel full, drop the oldest.
		select {
		case <-lines:
		default:
		}
	}
	select {
	case lines <- entry:
		return true
	case <-ctx.Done():
		return false
	}
}

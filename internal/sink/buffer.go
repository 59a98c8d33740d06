// Package sink provides the text surface streamed history is written into.
package sink

import (
	"strings"
	"sync"
)

// DefaultMaxLines is the number of lines a Buffer keeps when no limit is set.
const DefaultMaxLines = 1000

// Buffer is an append-only text surface that retains at most a fixed number
// of lines, evicting the oldest whole lines first. A trailing fragment without
// a newline counts as a line and is completed by the next append.
//
// The buffer has no write path besides AppendAndTrim and Clear, so it is
// read-only to everything but the streamer and the panel's clear command.
type Buffer struct {
	mu       sync.Mutex
	lines    []string // complete lines, without their newline
	partial  string
	maxLines int
	revision int
}

// NewBuffer creates a buffer keeping at most maxLines lines.
func NewBuffer(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Buffer{maxLines: maxLines}
}

// AppendAndTrim appends text at the end of the buffer and drops the oldest
// lines until no more than the maximum remain. Empty text is a no-op.
func (b *Buffer) AppendAndTrim(text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.insert(text)
	b.trim()
	b.revision++
}

func (b *Buffer) insert(text string) {
	parts := strings.Split(b.partial+text, "\n")
	b.lines = append(b.lines, parts[:len(parts)-1]...)
	b.partial = parts[len(parts)-1]
}

func (b *Buffer) trim() {
	overflow := b.lineCount() - b.maxLines
	if overflow <= 0 {
		return
	}
	if overflow > len(b.lines) {
		// Only reachable with maxLines == 0, which NewBuffer prevents.
		overflow = len(b.lines)
	}
	b.lines = append([]string(nil), b.lines[overflow:]...)
}

func (b *Buffer) lineCount() int {
	n := len(b.lines)
	if b.partial != "" {
		n++
	}
	return n
}

// Clear erases the whole buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
	b.partial = ""
	b.revision++
}

// LineCount returns the number of retained lines.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineCount()
}

// MaxLines returns the retention limit.
func (b *Buffer) MaxLines() int {
	return b.maxLines
}

// Lines returns a copy of the retained lines, including a trailing fragment.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, b.lineCount())
	out = append(out, b.lines...)
	if b.partial != "" {
		out = append(out, b.partial)
	}
	return out
}

// String returns the buffer contents.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == 0 {
		return b.partial
	}
	return strings.Join(b.lines, "\n") + "\n" + b.partial
}

// Revision increases on every change; views use it to skip re-rendering.
func (b *Buffer) Revision() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revision
}

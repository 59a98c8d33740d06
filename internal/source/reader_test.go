package source

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func readerCollectLines(t *testing.T, s *ReaderSource, timeout time.Duration) []LogEntry {
	t.Helper()
	var entries []LogEntry
	deadline := time.After(timeout)
	for {
		select {
		case entry, ok := <-s.Lines():
			if !ok {
				return entries
			}
			entries = append(entries, entry)
		case <-deadline:
			t.Fatal("timed out waiting for lines")
			return nil
		}
	}
}

func TestReaderSource_BasicRead(t *testing.T) {
	input := "line one\nline two\nline three\n"
	src := NewReaderSource(strings.NewReader(input))

	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	entries := readerCollectLines(t, src, 2*time.Second)

	want := []string{"line one", "line two", "line three"}
	if len(entries) != len(want) {
		t.Fatalf("got %d lines, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Line != want[i] {
			t.Errorf("line %d: got %q, want %q", i, e.Line, want[i])
		}
		if e.Source != "reader" {
			t.Errorf("line %d: source = %q, want \"reader\"", i, e.Source)
		}
	}
}

func TestReaderSource_Name(t *testing.T) {
	src := NewReaderSource(strings.NewReader("x\n"), WithName("tail"))
	src.Start(context.Background())
	entries := readerCollectLines(t, src, 2*time.Second)
	if len(entries) != 1 || entries[0].Source != "tail" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestReaderSource_EmptyInput(t *testing.T) {
	src := NewReaderSource(strings.NewReader(""))

	src.Start(context.Background())
	entries := readerCollectLines(t, src, 2*time.Second)

	if len(entries) != 0 {
		t.Fatalf("expected 0 lines, got %d", len(entries))
	}
}

func TestReaderSource_StartTwice(t *testing.T) {
	src := NewReaderSource(strings.NewReader(""))
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := src.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}
	src.Stop()
}

func TestReaderSource_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()

	src := NewReaderSource(pr)
	ctx, cancel := context.WithCancel(context.Background())
	src.Start(ctx)

	pw.Write([]byte("hello\n"))
	<-src.Lines()
	cancel()
	pw.Close() // unblock scanner

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not finish after context cancellation")
	}
}

func TestReaderSource_Stop(t *testing.T) {
	pr, pw := io.Pipe()

	src := NewReaderSource(pr)
	src.Start(context.Background())

	pw.Write([]byte("line\n"))
	<-src.Lines()

	go pw.Close()
	src.Stop()

	_, ok := <-src.Lines()
	if ok {
		t.Fatal("expected lines channel to be closed")
	}
}

func TestReaderSource_StopBeforeStart(t *testing.T) {
	src := NewReaderSource(strings.NewReader(""))
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
}

func TestReaderSource_DropOldest(t *testing.T) {
	input := "a\nb\nc\nd\n"
	src := NewReaderSource(strings.NewReader(input),
		WithBufferSize(2),
		WithBackpressure(DropOldest),
	)

	src.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	entries := readerCollectLines(t, src, 2*time.Second)

	if len(entries) < 2 {
		t.Fatalf("expected at least 2 lines, got %d", len(entries))
	}
	if entries[len(entries)-1].Line != "d" {
		t.Errorf("last line should be 'd', got %q", entries[len(entries)-1].Line)
	}
}

func TestParseBackpressure(t *testing.T) {
	tests := []struct {
		in      string
		want    BackpressureStrategy
		wantErr bool
	}{
		{in: "", want: Block},
		{in: "block", want: Block},
		{in: " Drop_Oldest ", want: DropOldest},
		{in: "newest", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBackpressure(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackpressure(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseBackpressure(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReaderSource_LongLines(t *testing.T) {
	long := strings.Repeat("x", 500_000)
	src := NewReaderSource(strings.NewReader(long + "\n"))

	src.Start(context.Background())
	entries := readerCollectLines(t, src, 2*time.Second)

	if len(entries) != 1 || len(entries[0].Line) != 500_000 {
		t.Fatalf("expected 1 line of 500000 chars, got %d lines", len(entries))
	}
}

func TestReaderSource_ImplementsSource(t *testing.T) {
	var _ Source = (*ReaderSource)(nil)
}

func TestIsPipe(t *testing.T) {
	_ = IsPipe()
}

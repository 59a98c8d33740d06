package sink

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestNewBuffer_Defaults(t *testing.T) {
	b := NewBuffer(0)
	if b.MaxLines() != DefaultMaxLines {
		t.Fatalf("MaxLines() = %d, want %d", b.MaxLines(), DefaultMaxLines)
	}
	if b.LineCount() != 0 || b.String() != "" {
		t.Fatalf("new buffer not empty: %q", b.String())
	}
}

func TestAppendAndTrim_Basic(t *testing.T) {
	b := NewBuffer(10)
	b.AppendAndTrim("one\ntwo\n")
	b.AppendAndTrim("three\n")

	want := []string{"one", "two", "three"}
	if got := b.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
	if b.String() != "one\ntwo\nthree\n" {
		t.Fatalf("String() = %q", b.String())
	}
}

func TestAppendAndTrim_EmptyIsNoop(t *testing.T) {
	b := NewBuffer(10)
	rev := b.Revision()
	b.AppendAndTrim("")
	if b.Revision() != rev {
		t.Fatal("empty append changed the revision")
	}
}

func TestAppendAndTrim_PartialLineIsCompletedLater(t *testing.T) {
	b := NewBuffer(10)
	b.AppendAndTrim("# Result: ")
	b.AppendAndTrim("42\nnext")

	want := []string{"# Result: 42", "next"}
	if got := b.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
}

func TestAppendAndTrim_KeepsMostRecentLines(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		batches  []int // number of lines per append
		wantLast int
	}{
		{"single batch over limit", 5, []int{12}, 12},
		{"many small batches", 3, []int{1, 1, 1, 1, 1, 1, 1}, 7},
		{"exactly at limit", 4, []int{2, 2}, 4},
		{"default limit", DefaultMaxLines, []int{600, 600, 600}, 1800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.max)
			n := 0
			for _, count := range tt.batches {
				var sb strings.Builder
				for i := 0; i < count; i++ {
					n++
					fmt.Fprintf(&sb, "line %d\n", n)
				}
				b.AppendAndTrim(sb.String())
				if b.LineCount() > tt.max {
					t.Fatalf("LineCount() = %d exceeds max %d", b.LineCount(), tt.max)
				}
			}

			lines := b.Lines()
			wantCount := tt.wantLast
			if wantCount > tt.max {
				wantCount = tt.max
			}
			if len(lines) != wantCount {
				t.Fatalf("kept %d lines, want %d", len(lines), wantCount)
			}
			first := tt.wantLast - wantCount + 1
			for i, line := range lines {
				if want := fmt.Sprintf("line %d", first+i); line != want {
					t.Fatalf("line %d = %q, want %q", i, line, want)
				}
			}
		})
	}
}

func TestAppendAndTrim_CountsTrailingFragment(t *testing.T) {
	b := NewBuffer(2)
	b.AppendAndTrim("a\nb\nc")

	want := []string{"b", "c"}
	if got := b.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
	if b.String() != "b\nc" {
		t.Fatalf("String() = %q, want %q", b.String(), "b\nc")
	}
}

func TestClear(t *testing.T) {
	b := NewBuffer(10)
	b.AppendAndTrim("a\nb\n")
	b.Clear()
	if b.LineCount() != 0 || b.String() != "" {
		t.Fatalf("buffer not cleared: %q", b.String())
	}
}

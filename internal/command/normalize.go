// Package command turns selected text into a Python snippet and delivers it
// to the host's command port.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultCommentPrefixes mark lines dropped before sending.
var DefaultCommentPrefixes = []string{"#", "//"}

// ErrRegionOutOfRange is returned for a selection outside the document.
var ErrRegionOutOfRange = errors.New("selection out of range")

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Region is a selection as a half-open byte range of a document. Start may
// be after End for selections made backwards.
type Region struct {
	Start int
	End   int
}

// Empty reports whether the region selects nothing.
func (r Region) Empty() bool { return r.Start == r.End }

func (r Region) bounds() (int, int) {
	if r.Start > r.End {
		return r.End, r.Start
	}
	return r.Start, r.End
}

// Gather returns the text of every non-empty region in order. Without any,
// the whole document is the only block. A non-empty region reaching outside
// the document is an error rather than being clamped.
func Gather(doc string, regions []Region) ([]string, error) {
	var blocks []string
	for _, r := range regions {
		if r.Empty() {
			continue
		}
		start, end := r.bounds()
		if start < 0 || end > len(doc) {
			return nil, fmt.Errorf("%w: %d:%d in a %d byte document", ErrRegionOutOfRange, r.Start, r.End, len(doc))
		}
		blocks = append(blocks, doc[start:end])
	}
	if len(blocks) == 0 {
		return []string{doc}, nil
	}
	return blocks, nil
}

// NormalizeBlock splits block into lines, drops comment lines, escapes
// triple single quotes and removes the common indentation.
//
// A line is a comment only when a prefix starts at column 0; indented
// comments are kept. Whitespace-only lines do not take part in computing the
// common indentation.
func NormalizeBlock(block string, commentPrefixes []string) []string {
	var lines []string
	indent := -1
	for _, line := range lineBreaks.Split(block, -1) {
		if line == "" || isComment(line, commentPrefixes) {
			continue
		}
		line = strings.ReplaceAll(line, `'''`, `\'\'\'`)
		lines = append(lines, line)

		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if w := len(line) - len(trimmed); indent < 0 || w < indent {
			indent = w
		}
	}

	if indent > 0 {
		for i, line := range lines {
			if len(line) < indent {
				lines[i] = ""
				continue
			}
			lines[i] = line[indent:]
		}
	}
	return lines
}

// Normalize normalizes every block and joins all resulting lines with "\n".
// An empty result means there is nothing to send.
func Normalize(blocks []string, commentPrefixes []string) string {
	var all []string
	for _, b := range blocks {
		all = append(all, NormalizeBlock(b, commentPrefixes)...)
	}
	return strings.Join(all, "\n")
}

func isComment(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

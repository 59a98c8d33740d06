// Package parser classifies lines of Maya's script editor history.
package parser

import (
	"regexp"
	"strings"
)

// Kind is the category of a history line.
type Kind int

const (
	KindPlain Kind = iota
	KindResult
	KindWarning
	KindError
	KindTraceback
	KindNotice
	KindEcho
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	case KindTraceback:
		return "traceback"
	case KindNotice:
		return "notice"
	case KindEcho:
		return "echo"
	default:
		return "plain"
	}
}

// Entry is a classified history line.
type Entry struct {
	Kind Kind
	// Message is the line without Maya's comment decoration, e.g. the value
	// of "# Result: 3 #" is "3".
	Message string
	Raw     string
}

// Maya decorates feedback as "# Result: x #" for Python and "// Result: x //"
// for MEL; the closing marker is optional.
var feedbackPattern = regexp.MustCompile(`^(?:#|//)\s*(Result|Warning|Error|Traceback \(most recent call last\)):\s*(.*?)\s*(?:#|//)?\s*$`)

var (
	tracebackFrame = regexp.MustCompile(`^#?\s+File ".*", line \d+`)
	exceptionLine  = regexp.MustCompile(`^#?\s*[A-Za-z_][\w.]*(?:Error|Exception|Interrupt|Exit):`)
)

// echoPrefixes are the lines of the wrapper mayapilot sends, which Maya
// echoes back when command echoing is on.
var echoPrefixes = []string{
	"import __main__",
	"import traceback",
	"try:",
	"exec('''",
	"except Exception as e:",
	"traceback.print_exc()",
	"print(e)",
	"import pprint;",
	"pp = pprint.PrettyPrinter(",
	"pp.pprint(",
}

// Parse classifies a single line. The trailing newline, if any, is ignored.
func Parse(line string) Entry {
	raw := strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(raw)
	entry := Entry{Kind: KindPlain, Message: trimmed, Raw: raw}

	switch {
	case trimmed == "":
		return entry
	case strings.HasPrefix(trimmed, "ERROR:"):
		entry.Kind = KindError
		entry.Message = strings.TrimSpace(strings.TrimPrefix(trimmed, "ERROR:"))
		return entry
	case strings.HasPrefix(trimmed, "# Stopped watching"), strings.HasPrefix(trimmed, "# Command Port"),
		strings.HasPrefix(trimmed, "Command Port started"):
		entry.Kind = KindNotice
		entry.Message = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		return entry
	}

	if m := feedbackPattern.FindStringSubmatch(trimmed); m != nil {
		switch {
		case m[1] == "Result":
			entry.Kind = KindResult
		case m[1] == "Warning":
			entry.Kind = KindWarning
		case m[1] == "Error":
			entry.Kind = KindError
		default:
			entry.Kind = KindTraceback
		}
		entry.Message = m[2]
		if entry.Kind == KindTraceback {
			entry.Message = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		}
		return entry
	}

	if tracebackFrame.MatchString(raw) || exceptionLine.MatchString(trimmed) {
		entry.Kind = KindTraceback
		entry.Message = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		return entry
	}

	for _, p := range echoPrefixes {
		if strings.HasPrefix(trimmed, p) {
			entry.Kind = KindEcho
			return entry
		}
	}
	return entry
}

// Counts tallies kinds over a set of lines.
type Counts map[Kind]int

// Count classifies every line and tallies the kinds.
func Count(lines []string) Counts {
	c := Counts{}
	for _, l := range lines {
		c[Parse(l).Kind]++
	}
	return c
}

// Problems is the number of warning, error and traceback lines.
func (c Counts) Problems() int {
	return c[KindWarning] + c[KindError] + c[KindTraceback]
}

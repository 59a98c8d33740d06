// Package tui is the terminal front end of mayapilot: a log panel showing
// Maya's history, a command line that sends to Maya and a status bar.
package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clarabennett2626/mayapilot/internal/parser"
)

// Theme represents terminal color theme.
type Theme int

const (
	ThemeDark Theme = iota
	ThemeLight
)

// ANSIMode controls how ANSI escape codes in history lines are handled.
type ANSIMode int

const (
	ANSIStrip ANSIMode = iota
	ANSIPassthrough
)

// WrapMode controls how long lines are handled.
type WrapMode int

const (
	WrapTruncate WrapMode = iota
	WrapWrap
)

// RenderConfig holds rendering configuration.
type RenderConfig struct {
	Theme         Theme
	ANSIMode      ANSIMode
	WrapMode      WrapMode
	TerminalWidth int
	ShowBadges    bool // prefix each line with its kind
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() RenderConfig {
	return RenderConfig{
		Theme:         ThemeDark,
		ANSIMode:      ANSIStrip,
		WrapMode:      WrapTruncate,
		TerminalWidth: 120,
	}
}

// Renderer renders history lines as styled terminal output.
type Renderer struct {
	config RenderConfig
	styles themeStyles
}

type themeStyles struct {
	plain     lipgloss.Style
	result    lipgloss.Style
	warn      lipgloss.Style
	errKind   lipgloss.Style
	traceback lipgloss.Style
	notice    lipgloss.Style
	echo      lipgloss.Style
	separator lipgloss.Style
}

func darkStyles() themeStyles {
	return themeStyles{
		plain:     lipgloss.NewStyle().Foreground(lipgloss.Color("255")),             // white
		result:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),              // green
		warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("220")),             // yellow
		errKind:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),  // red bold
		traceback: lipgloss.NewStyle().Foreground(lipgloss.Color("167")),             // muted red
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Italic(true), // purple
		echo:      lipgloss.NewStyle().Foreground(lipgloss.Color("243")),             // dim gray
		separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),             // dark gray
	}
}

func lightStyles() themeStyles {
	return themeStyles{
		plain:     lipgloss.NewStyle().Foreground(lipgloss.Color("0")),
		result:    lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("172")),
		errKind:   lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
		traceback: lipgloss.NewStyle().Foreground(lipgloss.Color("124")),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("91")).Italic(true),
		echo:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		separator: lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	}
}

// NewRenderer creates a new Renderer with the given config.
func NewRenderer(config RenderConfig) *Renderer {
	if config.TerminalWidth <= 0 {
		config.TerminalWidth = 120
	}
	var styles themeStyles
	if config.Theme == ThemeLight {
		styles = lightStyles()
	} else {
		styles = darkStyles()
	}
	return &Renderer{config: config, styles: styles}
}

// SetWidth changes the width used for truncation.
func (r *Renderer) SetWidth(width int) {
	if width > 0 {
		r.config.TerminalWidth = width
	}
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// RenderLine classifies and renders one history line.
func (r *Renderer) RenderLine(line string) string {
	return r.RenderEntry(parser.Parse(line))
}

// RenderEntry renders a single classified line as a styled string.
func (r *Renderer) RenderEntry(entry parser.Entry) string {
	text := r.text(entry)
	if text == "" && !r.config.ShowBadges {
		return ""
	}

	line := r.style(entry.Kind).Render(text)
	if r.config.ShowBadges {
		line = r.style(entry.Kind).Render(badge(entry.Kind)) + r.styles.separator.Render(" │ ") + line
	}
	return r.applyWrap(line)
}

// RenderEntryPlain renders without styling (for piping/testing visible text).
func (r *Renderer) RenderEntryPlain(entry parser.Entry) string {
	text := r.text(entry)
	if r.config.ShowBadges {
		return badge(entry.Kind) + " │ " + text
	}
	return text
}

func (r *Renderer) text(entry parser.Entry) string {
	text := entry.Raw
	if text == "" {
		text = entry.Message
	}
	if r.config.ANSIMode == ANSIStrip {
		text = StripANSI(text)
	}
	return strings.ReplaceAll(text, "\t", "    ")
}

func (r *Renderer) style(k parser.Kind) lipgloss.Style {
	switch k {
	case parser.KindResult:
		return r.styles.result
	case parser.KindWarning:
		return r.styles.warn
	case parser.KindError:
		return r.styles.errKind
	case parser.KindTraceback:
		return r.styles.traceback
	case parser.KindNotice:
		return r.styles.notice
	case parser.KindEcho:
		return r.styles.echo
	default:
		return r.styles.plain
	}
}

func badge(k parser.Kind) string {
	switch k {
	case parser.KindResult:
		return "RES "
	case parser.KindWarning:
		return "WARN"
	case parser.KindError:
		return "ERR "
	case parser.KindTraceback:
		return "TRC "
	case parser.KindNotice:
		return "NOTE"
	case parser.KindEcho:
		return "ECHO"
	default:
		return "    "
	}
}

func (r *Renderer) applyWrap(line string) string {
	if r.config.WrapMode == WrapTruncate && r.config.TerminalWidth > 0 {
		// Strip ANSI to measure visible length, but truncate the raw string
		visible := StripANSI(line)
		if len([]rune(visible)) > r.config.TerminalWidth {
			cut := truncateToWidth(line, r.config.TerminalWidth-1)
			if len(visible) != len(line) {
				// Close any style left open by the cut.
				cut += "\x1b[0m"
			}
			return cut + "…"
		}
	}
	// WrapWrap: lipgloss handles wrapping naturally, just return as-is
	return line
}

// truncateToWidth truncates a string with ANSI codes to fit a visible width.
func truncateToWidth(s string, width int) string {
	visible := 0
	inEscape := false
	var b strings.Builder
	for _, c := range s {
		if c == '\x1b' {
			inEscape = true
			b.WriteRune(c)
			continue
		}
		if inEscape {
			b.WriteRune(c)
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				inEscape = false
			}
			continue
		}
		if visible >= width {
			break
		}
		b.WriteRune(c)
		visible++
	}
	return b.String()
}

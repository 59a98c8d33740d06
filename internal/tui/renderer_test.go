package tui

import (
	"strings"
	"testing"

	"github.com/clarabennett2626/mayapilot/internal/parser"
)

func plainRenderer(opts ...func(*RenderConfig)) *Renderer {
	cfg := DefaultConfig()
	cfg.TerminalWidth = 200 // wide enough to avoid truncation
	for _, o := range opts {
		o(&cfg)
	}
	return NewRenderer(cfg)
}

func TestRenderBadges(t *testing.T) {
	r := plainRenderer(func(c *RenderConfig) { c.ShowBadges = true })
	tests := []struct {
		line     string
		contains string
	}{
		{"# Result: 3 #", "RES"},
		{"# Warning: careful #", "WARN"},
		{"# Error: boom #", "ERR"},
		{"ERROR: Unable to connect to maya.", "ERR"},
		{"# Traceback (most recent call last):", "TRC"},
		{"# Stopped watching maya: User Cancelled", "NOTE"},
		{"import __main__", "ECHO"},
	}
	for _, tt := range tests {
		out := r.RenderEntryPlain(parser.Parse(tt.line))
		if !strings.HasPrefix(out, tt.contains) {
			t.Errorf("line=%q: expected badge %q, got %q", tt.line, tt.contains, out)
		}
		if !strings.Contains(out, tt.line) {
			t.Errorf("line=%q: text missing from %q", tt.line, out)
		}
	}
}

func TestRenderKeepsDecoration(t *testing.T) {
	r := plainRenderer()
	out := r.RenderEntryPlain(parser.Parse("# Result: [u'pCube1'] #\n"))
	if out != "# Result: [u'pCube1'] #" {
		t.Errorf("RenderEntryPlain = %q", out)
	}
}

func TestRenderLineStyledKeepsText(t *testing.T) {
	r := plainRenderer()
	for _, line := range []string{"# Error: boom #", "hello", "# Result: 1 #"} {
		out := r.RenderLine(line)
		if StripANSI(out) != line {
			t.Errorf("RenderLine(%q) visible text = %q", line, StripANSI(out))
		}
	}
}

func TestStripANSI(t *testing.T) {
	input := "\x1b[31mERROR\x1b[0m something failed"
	got := StripANSI(input)
	if got != "ERROR something failed" {
		t.Errorf("StripANSI=%q, want %q", got, "ERROR something failed")
	}
}

func TestANSIPassthrough(t *testing.T) {
	r := plainRenderer(func(c *RenderConfig) { c.ANSIMode = ANSIPassthrough })
	entry := parser.Entry{Raw: "\x1b[31mred text\x1b[0m"}
	out := r.RenderEntryPlain(entry)
	if !strings.Contains(out, "\x1b[31m") {
		t.Error("ANSI codes should pass through")
	}
}

func TestANSIStrip(t *testing.T) {
	r := plainRenderer(func(c *RenderConfig) { c.ANSIMode = ANSIStrip })
	entry := parser.Entry{Raw: "\x1b[31mred text\x1b[0m"}
	out := r.RenderEntryPlain(entry)
	if strings.Contains(out, "\x1b[") {
		t.Error("ANSI codes should be stripped")
	}
	if !strings.Contains(out, "red text") {
		t.Error("text content should remain")
	}
}

func TestTabsExpanded(t *testing.T) {
	r := plainRenderer()
	out := r.RenderEntryPlain(parser.Parse("\tindented"))
	if out != "    indented" {
		t.Errorf("expected tab expanded, got %q", out)
	}
}

func TestTruncation(t *testing.T) {
	r := plainRenderer(func(c *RenderConfig) {
		c.TerminalWidth = 30
		c.WrapMode = WrapTruncate
	})
	out := r.RenderLine("This is a very long message that should be truncated at the terminal width boundary")
	plain := StripANSI(out)
	// ellipsis "…" is 3 bytes in UTF-8 but 1 visible char
	visibleLen := len([]rune(plain))
	if visibleLen > 30 {
		t.Errorf("expected truncated output <=30 runes, got %d: %q", visibleLen, plain)
	}
	if !strings.HasSuffix(plain, "…") {
		t.Error("truncated output should end with ellipsis")
	}
}

func TestTruncationMultibyte(t *testing.T) {
	r := plainRenderer(func(c *RenderConfig) { c.TerminalWidth = 10 })
	out := StripANSI(r.RenderLine(strings.Repeat("é", 20)))
	if out != strings.Repeat("é", 9)+"…" {
		t.Errorf("unexpected truncation %q", out)
	}
}

func TestWrapMode(t *testing.T) {
	r := plainRenderer(func(c *RenderConfig) {
		c.TerminalWidth = 30
		c.WrapMode = WrapWrap
	})
	out := r.RenderLine("This is a long message that should not be truncated in wrap mode")
	plain := StripANSI(out)
	if strings.HasSuffix(plain, "…") {
		t.Error("wrap mode should not truncate")
	}
}

func TestSetWidth(t *testing.T) {
	r := plainRenderer()
	r.SetWidth(12)
	if got := StripANSI(r.RenderLine("0123456789abcdef")); got != "0123456789a…" {
		t.Errorf("after SetWidth(12) got %q", got)
	}
	r.SetWidth(0)
	if r.config.TerminalWidth != 12 {
		t.Error("SetWidth(0) should be ignored")
	}
}

func TestDarkTheme(t *testing.T) {
	r := NewRenderer(RenderConfig{Theme: ThemeDark, TerminalWidth: 200})
	out := r.RenderLine("# Error: fail #")
	if !strings.Contains(out, "fail") {
		t.Errorf("expected text in output: %q", out)
	}
}

func TestLightTheme(t *testing.T) {
	r := NewRenderer(RenderConfig{Theme: ThemeLight, TerminalWidth: 200})
	out := r.RenderLine("# Result: ok #")
	if !strings.Contains(out, "ok") {
		t.Errorf("expected text in output: %q", out)
	}
}

func TestRenderEntry_EmptyEntry(t *testing.T) {
	r := plainRenderer()
	if out := r.RenderEntry(parser.Entry{}); out != "" {
		t.Errorf("empty entry should produce empty output, got %q", out)
	}
}

func TestRenderEntry_MessageFallback(t *testing.T) {
	r := plainRenderer()
	entry := parser.Entry{Message: "message only"}
	out := r.RenderEntryPlain(entry)
	if out != "message only" {
		t.Errorf("should fall back to Message when Raw empty: %q", out)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TerminalWidth != 120 {
		t.Errorf("default width=%d, want 120", cfg.TerminalWidth)
	}
	if cfg.Theme != ThemeDark {
		t.Error("default theme should be dark")
	}
	if cfg.ANSIMode != ANSIStrip {
		t.Error("default ANSI mode should be strip")
	}
	if cfg.ShowBadges {
		t.Error("badges should be off by default")
	}
}

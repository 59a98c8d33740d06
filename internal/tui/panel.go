package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/clarabennett2626/mayapilot/internal/parser"
	"github.com/clarabennett2626/mayapilot/internal/sink"
)

// PanelTitle names the log panel.
const PanelTitle = "LOG: Maya"

// Panel is the scrollable log panel. It is the display sink of a watch
// session and must only be touched from the bubbletea event loop.
type Panel struct {
	buf      *sink.Buffer
	renderer *Renderer
	view     viewport.Model
	rev      int
	counts   parser.Counts
}

// NewPanel creates an empty panel keeping at most maxLines lines.
func NewPanel(maxLines int, r *Renderer) *Panel {
	if r == nil {
		r = NewRenderer(DefaultConfig())
	}
	return &Panel{
		buf:      sink.NewBuffer(maxLines),
		renderer: r,
		view:     viewport.New(0, 0),
		rev:      -1,
		counts:   parser.Counts{},
	}
}

// AppendAndTrim appends streamed text and trims the oldest lines.
func (p *Panel) AppendAndTrim(text string) {
	p.buf.AppendAndTrim(text)
	p.refresh()
}

// ScrollToEnd shows the last line.
func (p *Panel) ScrollToEnd() {
	p.refresh()
	p.view.GotoBottom()
}

// Clear erases the panel.
func (p *Panel) Clear() {
	p.buf.Clear()
	p.refresh()
	p.view.GotoTop()
}

// SetSize resizes the visible area.
func (p *Panel) SetSize(width, height int) {
	atBottom := p.view.AtBottom()
	p.view.Width = width
	p.view.Height = height
	p.renderer.SetWidth(width)
	p.rev = -1
	p.refresh()
	if atBottom {
		p.view.GotoBottom()
	}
}

// ScrollUp moves the view up n lines.
func (p *Panel) ScrollUp(n int) { p.view.ScrollUp(n) }

// ScrollDown moves the view down n lines.
func (p *Panel) ScrollDown(n int) { p.view.ScrollDown(n) }

// HalfPageUp moves the view up half a page.
func (p *Panel) HalfPageUp() { p.view.HalfPageUp() }

// HalfPageDown moves the view down half a page.
func (p *Panel) HalfPageDown() { p.view.HalfPageDown() }

// GotoTop shows the first line.
func (p *Panel) GotoTop() { p.view.GotoTop() }

// Offset is the index of the first visible line.
func (p *Panel) Offset() int { return p.view.YOffset }

// Height is the number of visible lines.
func (p *Panel) Height() int { return p.view.Height }

// AtBottom reports whether the last line is visible.
func (p *Panel) AtBottom() bool { return p.view.AtBottom() }

// ScrollPercent reports the scroll position between 0 and 1.
func (p *Panel) ScrollPercent() float64 { return p.view.ScrollPercent() }

// Buffer exposes the underlying line buffer.
func (p *Panel) Buffer() *sink.Buffer { return p.buf }

// Counts tallies the kinds of the retained lines.
func (p *Panel) Counts() parser.Counts { return p.counts }

// View renders the visible lines.
func (p *Panel) View() string { return p.view.View() }

// refresh re-renders the content when the buffer changed since last time.
func (p *Panel) refresh() {
	rev := p.buf.Revision()
	if rev == p.rev {
		return
	}
	p.rev = rev

	lines := p.buf.Lines()
	rendered := make([]string, len(lines))
	for i, l := range lines {
		rendered[i] = p.renderer.RenderLine(l)
	}
	p.view.SetContent(strings.Join(rendered, "\n"))
	p.counts = parser.Count(lines)
}

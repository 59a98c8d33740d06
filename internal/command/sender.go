package command

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/clarabennett2626/mayapilot/internal/config"
)

const (
	// DefaultDialTimeout bounds connecting and writing.
	DefaultDialTimeout = 5 * time.Second
	// DefaultSettleDelay is how long the connection stays open after a
	// successful write so the host can start reading.
	DefaultSettleDelay = 100 * time.Millisecond

	// ConnectErrorMessage is pushed to the notifier when delivery fails.
	ConnectErrorMessage = "ERROR: Unable to connect to maya. Make sure the Command Socket is open.\n"

	previewLength = 200
)

// Notifier receives user-facing messages, normally the log panel queue.
type Notifier interface {
	Push(text string)
}

// SendError reports a failed delivery.
type SendError struct {
	Host string
	Port int
	Op   string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Option configures a Sender.
type Option func(*Sender)

// WithLogger sets the sender logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) { s.logger = l }
}

// WithTimeout overrides DefaultDialTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) { s.timeout = d }
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sender) { s.settle = d }
}

// Sender delivers snippets to the host, one connection per send. The
// settings are read on every send so reloads take effect immediately.
type Sender struct {
	settings func() config.Settings
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	settle   time.Duration
}

// NewSender creates a sender. notifier may be nil.
func NewSender(settings func() config.Settings, notifier Notifier, opts ...Option) *Sender {
	s := &Sender{
		settings: settings,
		notifier: notifier,
		logger:   slog.Default(),
		timeout:  DefaultDialTimeout,
		settle:   DefaultSettleDelay,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send gathers regions of doc, normalizes them and delivers the result.
// Nothing is sent, and nil returned, when the snippet is empty.
func (s *Sender) Send(ctx context.Context, doc string, regions []Region) error {
	cfg := s.settings()

	prefixes := cfg.CommentPrefixes
	if prefixes == nil {
		prefixes = DefaultCommentPrefixes
	}
	blocks, err := Gather(doc, regions)
	if err != nil {
		return err
	}
	snippet := Normalize(blocks, prefixes)
	if snippet == "" {
		s.logger.Debug("nothing to send")
		return nil
	}

	s.logger.Debug("sending", "host", cfg.Host, "port", cfg.Port, "preview", preview(snippet))
	return s.deliver(ctx, cfg.Host, cfg.Port, Wrap(snippet))
}

func (s *Sender) deliver(ctx context.Context, host string, port int, payload string) (err error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	defer func() {
		if err == nil {
			return
		}
		if s.notifier != nil {
			s.notifier.Push(ConnectErrorMessage)
		}
		s.logger.Error("failed to communicate with maya", "host", host, "port", port, "error", err)
	}()

	dialer := net.Dialer{Timeout: s.timeout}
	conn, dialErr := dialer.DialContext(ctx, "tcp", addr)
	if dialErr != nil {
		return &SendError{Host: host, Port: port, Op: "dial", Err: dialErr}
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return &SendError{Host: host, Port: port, Op: "write", Err: err}
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		return &SendError{Host: host, Port: port, Op: "write", Err: err}
	}

	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
	}
	return nil
}

func preview(snippet string) string {
	r := []rune(snippet)
	if len(r) <= previewLength {
		return snippet
	}
	return string(r[:previewLength])
}

// Package hoststub is a stand-in for the host's command port: it accepts
// connections, reads each one to EOF and publishes the payload.
package hoststub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const maxPayload = 4 << 20

// Message is everything read from one connection.
type Message struct {
	Payload  string
	Remote   string
	Received time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithHistoryFile appends what the server receives to path, the way the host
// writes its script editor history.
func WithHistoryFile(path string) Option {
	return func(s *Server) { s.history = path }
}

// WithEcho sets how a payload is rendered into the history file. The default
// writes the payload unchanged.
func WithEcho(fn func(payload string) string) Option {
	return func(s *Server) { s.echo = fn }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBuffer sets the capacity of the Messages channel.
func WithBuffer(n int) Option {
	return func(s *Server) { s.bufSize = n }
}

// Server accepts command connections on a TCP address.
type Server struct {
	addr    string
	history string
	echo    func(string) string
	logger  *slog.Logger
	bufSize int

	mu       sync.Mutex
	listener net.Listener
	running  bool
	messages chan Message
	quit     chan struct{}
	histMu   sync.Mutex
	wg       sync.WaitGroup
}

// New creates a server for addr, e.g. "127.0.0.1:7002" or "127.0.0.1:0".
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		logger:  slog.Default(),
		bufSize: 16,
	}
	for _, o := range opts {
		o(s)
	}
	s.messages = make(chan Message, s.bufSize)
	s.quit = make(chan struct{})
	return s
}

// Start begins listening and accepting in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("host stub already running")
	}
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.running = true

	s.logger.Info("host stub listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.accept(ctx, listener)
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Port returns the bound TCP port once started, or 0.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Messages returns received payloads. It is closed after Stop.
func (s *Server) Messages() <-chan Message { return s.messages }

func (s *Server) accept(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("accepting connection", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	data, err := io.ReadAll(io.LimitReader(conn, maxPayload))
	if err != nil {
		s.logger.Warn("reading connection", "remote", conn.RemoteAddr().String(), "error", err)
	}
	if len(data) == 0 {
		return
	}

	msg := Message{
		Payload:  string(data),
		Remote:   conn.RemoteAddr().String(),
		Received: time.Now(),
	}
	s.logger.Debug("received command", "remote", msg.Remote, "bytes", len(data))

	if s.history != "" {
		if err := s.appendHistory(msg.Payload); err != nil {
			s.logger.Warn("writing history", "path", s.history, "error", err)
		}
	}

	select {
	case s.messages <- msg:
	case <-ctx.Done():
	case <-s.quit:
	}
}

func (s *Server) appendHistory(payload string) error {
	text := payload
	if s.echo != nil {
		text = s.echo(payload)
	}
	if text == "" {
		return nil
	}
	if text[len(text)-1] != '\n' {
		text += "\n"
	}

	s.histMu.Lock()
	defer s.histMu.Unlock()

	f, err := os.OpenFile(s.history, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text)
	return err
}

// Stop closes the listener, waits for open connections and closes Messages.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.listener.Close()
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.messages)
	return nil
}

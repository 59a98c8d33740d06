package hoststub

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	srv := New("127.0.0.1:0", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	require.NoError(t, srv.Start(ctx))
	return srv
}

func send(t *testing.T, addr, payload string) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func receive(t *testing.T, srv *Server) Message {
	t.Helper()
	select {
	case msg := <-srv.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func TestServer_OneMessagePerConnection(t *testing.T) {
	srv := startServer(t)
	require.NotZero(t, srv.Port())

	send(t, srv.Addr(), "print('a')\nprint('b')")
	send(t, srv.Addr(), "cmds.ls()")

	first := receive(t, srv)
	second := receive(t, srv)
	got := []string{first.Payload, second.Payload}
	require.ElementsMatch(t, []string{"print('a')\nprint('b')", "cmds.ls()"}, got)
	require.NotEmpty(t, first.Remote)
	require.False(t, first.Received.IsZero())
}

func TestServer_EmptyConnectionIgnored(t *testing.T) {
	srv := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	conn.Close()
	send(t, srv.Addr(), "x")

	require.Equal(t, "x", receive(t, srv).Payload)
}

func TestServer_AppendsHistory(t *testing.T) {
	history := filepath.Join(t.TempDir(), "history")
	srv := startServer(t,
		WithHistoryFile(history),
		WithEcho(func(p string) string { return "# " + strings.ToUpper(p) }),
	)

	send(t, srv.Addr(), "one")
	receive(t, srv)
	send(t, srv.Addr(), "two")
	receive(t, srv)

	data, err := os.ReadFile(history)
	require.NoError(t, err)
	require.Equal(t, "# ONE\n# TWO\n", string(data))
}

func TestServer_StartTwice(t *testing.T) {
	srv := startServer(t)
	require.Error(t, srv.Start(context.Background()))
}

func TestServer_StopClosesMessages(t *testing.T) {
	srv := New("127.0.0.1:0")
	require.NoError(t, srv.Start(context.Background()))
	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())

	_, ok := <-srv.Messages()
	require.False(t, ok)
}

func TestServer_StopWithUnreadMessages(t *testing.T) {
	srv := New("127.0.0.1:0", WithBuffer(0))
	require.NoError(t, srv.Start(context.Background()))
	send(t, srv.Addr(), "never read")

	done := make(chan struct{})
	go func() {
		// Let the handler block on the unbuffered channel first.
		time.Sleep(50 * time.Millisecond)
		srv.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an unread message")
	}
}

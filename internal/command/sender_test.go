package command

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/hoststub"
)

type notifications struct {
	mu    sync.Mutex
	texts []string
}

func (n *notifications) Push(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func (n *notifications) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

func settingsFor(host string, port int) func() config.Settings {
	return func() config.Settings {
		s := config.Default()
		s.Host = host
		s.Port = port
		return s
	}
}

func startStub(t *testing.T) *hoststub.Server {
	t.Helper()
	srv := hoststub.New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	require.NoError(t, srv.Start(ctx))
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestSender_DeliversOneMessage(t *testing.T) {
	srv := startStub(t)
	notes := &notifications{}
	sender := NewSender(settingsFor("127.0.0.1", srv.Port()), notes, WithSettleDelay(time.Millisecond))

	require.NoError(t, sender.Send(context.Background(), "foo()", nil))

	select {
	case msg := <-srv.Messages():
		snippet, ok := Unwrap(msg.Payload)
		require.True(t, ok)
		require.Equal(t, "foo()", snippet)
		require.Contains(t, msg.Payload, "pp.pprint(foo())")
	case <-time.After(2 * time.Second):
		t.Fatal("stub received nothing")
	}

	select {
	case msg := <-srv.Messages():
		t.Fatalf("unexpected second message: %q", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
	require.Empty(t, notes.all())
}

func TestSender_OutOfRangeSelectionSendsNothing(t *testing.T) {
	srv := startStub(t)
	notes := &notifications{}
	sender := NewSender(settingsFor("127.0.0.1", srv.Port()), notes, WithSettleDelay(time.Millisecond))

	err := sender.Send(context.Background(), "foo()", []Region{{Start: 100, End: 200}})
	require.ErrorIs(t, err, ErrRegionOutOfRange)

	select {
	case msg := <-srv.Messages():
		t.Fatalf("unexpected message: %q", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
	require.Empty(t, notes.all())
}

func TestSender_EmptyCommentPrefixesFromStoreKeepComments(t *testing.T) {
	srv := startStub(t)
	s := config.Default()
	s.Port = srv.Port()
	s.CommentPrefixes = []string{}
	store := config.NewStore(s)
	sender := NewSender(store.Current, &notifications{}, WithSettleDelay(time.Millisecond))

	require.NoError(t, sender.Send(context.Background(), "# keep me\nx = 1", nil))

	select {
	case msg := <-srv.Messages():
		snippet, ok := Unwrap(msg.Payload)
		require.True(t, ok)
		require.Equal(t, "# keep me\nx = 1", snippet)
	case <-time.After(2 * time.Second):
		t.Fatal("stub received nothing")
	}
}

func TestSender_SendsSelectedRegions(t *testing.T) {
	srv := startStub(t)
	sender := NewSender(settingsFor("127.0.0.1", srv.Port()), nil, WithSettleDelay(time.Millisecond))

	doc := "import maya.cmds as cmds\n    cmds.ls()\n# skip\n    cmds.polyCube()\n"
	first := Region{Start: 25, End: 39}
	second := Region{Start: 46, End: len(doc)}
	require.NoError(t, sender.Send(context.Background(), doc, []Region{first, second}))

	msg := <-srv.Messages()
	snippet, ok := Unwrap(msg.Payload)
	require.True(t, ok)
	require.Equal(t, "cmds.ls()\ncmds.polyCube()", snippet)
}

func TestSender_EmptySnippetIsNoop(t *testing.T) {
	notes := &notifications{}
	// Nothing listens on this port; an attempted dial would fail.
	sender := NewSender(settingsFor("127.0.0.1", freePort(t)), notes)

	require.NoError(t, sender.Send(context.Background(), "# only a comment\n\n", nil))
	require.Empty(t, notes.all())
}

func TestSender_ConnectionFailure(t *testing.T) {
	notes := &notifications{}
	port := freePort(t)
	sender := NewSender(settingsFor("127.0.0.1", port), notes, WithTimeout(time.Second))

	err := sender.Send(context.Background(), "foo()", nil)
	require.Error(t, err)

	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	require.Equal(t, "dial", sendErr.Op)
	require.Equal(t, port, sendErr.Port)
	require.NotNil(t, errors.Unwrap(err))

	texts := notes.all()
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Unable to connect")
}

func TestSender_ReadsSettingsOnEverySend(t *testing.T) {
	srv := startStub(t)
	store := config.NewStore(config.Default())
	sender := NewSender(store.Current, nil, WithSettleDelay(time.Millisecond), WithTimeout(time.Second))

	bad := config.Default()
	bad.Port = freePort(t)
	store.Update(bad, nil)
	require.Error(t, sender.Send(context.Background(), "x = 1", nil))

	good := config.Default()
	good.Port = srv.Port()
	store.Update(good, nil)
	require.NoError(t, sender.Send(context.Background(), "x = 1", nil))
	<-srv.Messages()
}

func TestPreviewTruncates(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'é'
	}
	require.Len(t, []rune(preview(string(long))), 200)
	require.Equal(t, "short", preview("short"))
}

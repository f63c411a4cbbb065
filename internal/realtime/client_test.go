package realtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channelFixture is a minimal protocol server for exercising the client:
// it acknowledges joins and pings, and lets tests kill live sockets to
// simulate network failures.
type channelFixture struct {
	srv *httptest.Server

	mu        sync.Mutex
	conns     []*websocket.Conn
	connCount int
	dropFirst int // close this many connections right after upgrade
}

func newChannelFixture(t *testing.T, dropFirst int) *channelFixture {
	t.Helper()

	f := &channelFixture{dropFirst: dropFirst}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		f.mu.Lock()
		f.connCount++
		count := f.connCount
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		if count <= f.dropFirst {
			conn.Close()
			return
		}

		_ = conn.WriteJSON(mustFrame(FrameConnectionEstablished, ConnectionEstablishedPayload{UserID: uuid.New()}))

		for {
			var frame Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			switch frame.Type {
			case FrameJoinTask:
				var payload JoinTaskPayload
				if frame.Decode(&payload) == nil {
					_ = conn.WriteJSON(mustFrame(FrameJoinedTask, JoinedTaskPayload{TaskID: payload.TaskID}))
				}
			case FramePing:
				_ = conn.WriteJSON(Frame{Type: FramePong})
			}
		}
	}))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *channelFixture) wsURL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

// killAll closes every live server-side socket
func (f *channelFixture) killAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		conn.Close()
	}
	f.conns = nil
}

func (f *channelFixture) connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connCount
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestChannel_Connect(t *testing.T) {
	f := newChannelFixture(t, 0)

	established := make(chan struct{})
	ch := NewChannel(ChannelConfig{
		URL:   f.wsURL(),
		Token: "test-token",
		Events: Events{
			ConnectionEstablished: func(ConnectionEstablishedPayload) { close(established) },
		},
	})

	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Disconnect()

	waitSignal(t, established, "connection established event")
	assert.Equal(t, StateOpen, ch.State())
}

func TestChannel_SendWhileDisconnected(t *testing.T) {
	ch := NewChannel(ChannelConfig{URL: "ws://127.0.0.1:1", Token: "t"})

	err := ch.SendMessage(uuid.New(), "hello", nil, false)
	assert.ErrorIs(t, err, ErrNotConnected)

	err = ch.Ping()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestChannel_Reconnect(t *testing.T) {
	f := newChannelFixture(t, 0)

	reconnected := make(chan struct{})
	ch := NewChannel(ChannelConfig{
		URL:                f.wsURL(),
		Token:              "t",
		BaseReconnectDelay: 10 * time.Millisecond,
		Events: Events{
			Reconnected: func(attempt int) {
				assert.Equal(t, 1, attempt)
				close(reconnected)
			},
		},
	})

	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Disconnect()

	f.killAll()

	waitSignal(t, reconnected, "reconnect")
	assert.GreaterOrEqual(t, f.connections(), 2)
}

func TestChannel_RejoinTaskAfterReconnect(t *testing.T) {
	f := newChannelFixture(t, 0)

	taskID := uuid.New()
	joins := make(chan uuid.UUID, 4)
	reconnected := make(chan struct{})

	ch := NewChannel(ChannelConfig{
		URL:                f.wsURL(),
		Token:              "t",
		BaseReconnectDelay: 10 * time.Millisecond,
		Events: Events{
			JoinedTask:  func(p JoinedTaskPayload) { joins <- p.TaskID },
			Reconnected: func(int) { close(reconnected) },
		},
	})

	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Disconnect()

	require.NoError(t, ch.JoinTask(taskID, 0, 0))
	select {
	case joined := <-joins:
		assert.Equal(t, taskID, joined)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for first join")
	}

	f.killAll()
	waitSignal(t, reconnected, "reconnect")

	// The channel re-subscribes to the task it held before the drop
	select {
	case rejoined := <-joins:
		assert.Equal(t, taskID, rejoined)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for rejoin")
	}
}

func TestChannel_ReconnectExhaustion(t *testing.T) {
	f := newChannelFixture(t, 0)

	disconnected := make(chan struct{})
	ch := NewChannel(ChannelConfig{
		URL:                  f.wsURL(),
		Token:                "t",
		MaxReconnectAttempts: 2,
		BaseReconnectDelay:   10 * time.Millisecond,
		Events: Events{
			Disconnected: func(err error) {
				assert.Error(t, err)
				close(disconnected)
			},
		},
	})

	require.NoError(t, ch.Connect(context.Background()))

	// Stop accepting new connections, then drop the live socket; every
	// redial fails with connection refused
	f.srv.Listener.Close()
	f.killAll()

	waitSignal(t, disconnected, "reconnection budget exhaustion")
	assert.Equal(t, StateClosed, ch.State())
}

func TestChannel_DisconnectStopsReconnection(t *testing.T) {
	f := newChannelFixture(t, 0)

	reconnected := make(chan struct{}, 1)
	ch := NewChannel(ChannelConfig{
		URL:                f.wsURL(),
		Token:              "t",
		BaseReconnectDelay: 50 * time.Millisecond,
		Events: Events{
			Reconnected: func(int) { reconnected <- struct{}{} },
		},
	})

	require.NoError(t, ch.Connect(context.Background()))
	before := f.connections()

	ch.Disconnect()
	assert.Equal(t, StateClosed, ch.State())

	// No redial happens after an intentional disconnect
	select {
	case <-reconnected:
		t.Fatal("channel reconnected after intentional disconnect")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, before, f.connections())

	// And the channel stays unusable
	assert.Error(t, ch.Connect(context.Background()))
	assert.ErrorIs(t, ch.Ping(), ErrNotConnected)
}

func TestChannel_DisconnectDuringDial(t *testing.T) {
	f := newChannelFixture(t, 0)

	dialing := make(chan struct{})
	gate := make(chan struct{})
	netDialer := &net.Dialer{}
	dialer := &websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			close(dialing)
			<-gate
			return netDialer.DialContext(ctx, network, addr)
		},
	}

	ch := NewChannel(ChannelConfig{URL: f.wsURL(), Token: "t", Dialer: dialer})

	connectErr := make(chan error, 1)
	go func() { connectErr <- ch.Connect(context.Background()) }()

	// Disconnect lands while the handshake is still in flight; the dial that
	// finishes afterwards must not resurrect the channel
	waitSignal(t, dialing, "dial start")
	ch.Disconnect()
	close(gate)

	select {
	case err := <-connectErr:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for connect to return")
	}

	assert.Equal(t, StateClosed, ch.State())
	assert.ErrorIs(t, ch.Ping(), ErrNotConnected)
}

func TestChannel_ReconnectDelayGrowth(t *testing.T) {
	f := newChannelFixture(t, 0)

	const base = 40 * time.Millisecond

	var mu sync.Mutex
	var redials []time.Time
	dialCount := 0
	netDialer := &net.Dialer{}
	dialer := &websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			mu.Lock()
			dialCount++
			n := dialCount
			if n > 1 {
				redials = append(redials, time.Now())
			}
			mu.Unlock()

			// First dial succeeds, every redial is refused
			if n > 1 {
				return nil, errors.New("connection refused")
			}
			return netDialer.DialContext(ctx, network, addr)
		},
	}

	disconnected := make(chan struct{})
	ch := NewChannel(ChannelConfig{
		URL:                  f.wsURL(),
		Token:                "t",
		MaxReconnectAttempts: 3,
		BaseReconnectDelay:   base,
		Dialer:               dialer,
		Events: Events{
			Disconnected: func(err error) { close(disconnected) },
		},
	})

	require.NoError(t, ch.Connect(context.Background()))
	f.killAll()

	waitSignal(t, disconnected, "reconnection budget exhaustion")

	// Attempt n waits base*n before dialing, so the spacing between
	// consecutive redials grows with the attempt number
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, redials, 3)
	assert.GreaterOrEqual(t, redials[1].Sub(redials[0]), 2*base)
	assert.GreaterOrEqual(t, redials[2].Sub(redials[1]), 3*base)
}

func TestChannel_ConnectFailure(t *testing.T) {
	ch := NewChannel(ChannelConfig{URL: "ws://127.0.0.1:1", Token: "t"})

	err := ch.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateClosed, ch.State())
}

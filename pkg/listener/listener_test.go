/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package listener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/chemvis/pkg/gateway"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsServer struct {
	*httptest.Server
	conns    atomic.Int32
	authSeen atomic.Value
	onConn   func(n int32, c *websocket.Conn)
}

func newWSServer(t *testing.T, onConn func(n int32, c *websocket.Conn)) *wsServer {
	t.Helper()

	s := &wsServer{onConn: onConn}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.authSeen.Store(r.Header.Get("Authorization"))

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		s.onConn(s.conns.Add(1), c)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/updates/"
}

// holdOpen keeps the server side of a connection open until the client leaves.
func holdOpen(c *websocket.Conn) {
	defer func() { _ = c.Close() }()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func runListener(t *testing.T, l *Listener) (cancel func() error) {
	t.Helper()

	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- l.Run(ctx) }()

	return func() error {
		stop()

		select {
		case err := <-errCh:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("listener did not stop")
			return nil
		}
	}
}

func TestNotificationTriggersChange(t *testing.T) {
	srv := newWSServer(t, func(_ int32, c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = c.WriteJSON(map[string]string{"message": "something_else"})
		_ = c.WriteJSON(map[string]string{"message": "data_updated"})
		holdOpen(c)
	})

	modes := gateway.NewModeTracker()
	modes.Set(gateway.ModeLive)

	var changes atomic.Int32

	l := New(srv.wsURL(), modes, func(context.Context) { changes.Add(1) },
		WithCredentials("admin", "password123"))

	stop := runListener(t, l)

	require.Eventually(t, func() bool { return changes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateConnected, l.State())
	assert.True(t, modes.ChannelLive())
	assert.Equal(t, "Basic YWRtaW46cGFzc3dvcmQxMjM=", srv.authSeen.Load())

	require.ErrorIs(t, stop(), context.Canceled)
	assert.False(t, modes.ChannelLive())
	assert.Equal(t, StateDisconnected, l.State())
	assert.Equal(t, int32(1), changes.Load())
}

func TestReconnectsAfterDropWhileLive(t *testing.T) {
	srv := newWSServer(t, func(n int32, c *websocket.Conn) {
		if n == 1 {
			_ = c.Close()
			return
		}

		holdOpen(c)
	})

	modes := gateway.NewModeTracker()
	modes.Set(gateway.ModeLive)

	var states []State

	stateCh := make(chan State, 32)
	l := New(srv.wsURL(), modes, func(context.Context) {},
		WithReconnectDelay(20*time.Millisecond),
		WithStateHook(func(s State) { stateCh <- s }))

	stop := runListener(t, l)

	require.Eventually(t, func() bool { return srv.conns.Load() == 2 && l.State() == StateConnected },
		2*time.Second, 10*time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	close(stateCh)
	for s := range stateCh {
		states = append(states, s)
	}

	assert.Contains(t, states, StateBackoff)
	assert.Equal(t, StateConnecting, states[0])
}

func TestNoReconnectInDemoMode(t *testing.T) {
	modes := gateway.NewModeTracker()
	modes.Set(gateway.ModeLive)

	srv := newWSServer(t, func(_ int32, c *websocket.Conn) {
		modes.Set(gateway.ModeDemo)
		_ = c.Close()
	})

	l := New(srv.wsURL(), modes, func(context.Context) {}, WithReconnectDelay(10*time.Millisecond))
	stop := runListener(t, l)

	require.Eventually(t, func() bool { return srv.conns.Load() == 1 && l.State() == StateDisconnected },
		2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), srv.conns.Load())

	require.ErrorIs(t, stop(), context.Canceled)
}

func TestClosesChannelWhenModeTurnsDemo(t *testing.T) {
	srv := newWSServer(t, func(_ int32, c *websocket.Conn) { holdOpen(c) })

	modes := gateway.NewModeTracker()
	modes.Set(gateway.ModeLive)

	var changes atomic.Int32

	l := New(srv.wsURL(), modes, func(context.Context) { changes.Add(1) },
		WithReconnectDelay(10*time.Millisecond))
	stop := runListener(t, l)

	require.Eventually(t, func() bool { return l.State() == StateConnected && modes.ChannelLive() },
		2*time.Second, 10*time.Millisecond)

	modes.Set(gateway.ModeDemo)

	require.Eventually(t, func() bool { return !modes.ChannelLive() && l.State() == StateDisconnected },
		2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), srv.conns.Load())
	assert.False(t, modes.ChannelLive())

	modes.Set(gateway.ModeLive)
	require.Eventually(t, func() bool { return srv.conns.Load() == 2 && modes.ChannelLive() },
		2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, stop(), context.Canceled)
	assert.Equal(t, int32(0), changes.Load())
}

func TestWaitsForLiveMode(t *testing.T) {
	srv := newWSServer(t, func(_ int32, c *websocket.Conn) { holdOpen(c) })

	modes := gateway.NewModeTracker()
	l := New(srv.wsURL(), modes, func(context.Context) {})
	stop := runListener(t, l)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), srv.conns.Load())

	modes.Set(gateway.ModeLive)
	require.Eventually(t, func() bool { return srv.conns.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, stop(), context.Canceled)
}

type failingDialer struct {
	calls atomic.Int32
}

func (d *failingDialer) DialContext(context.Context, string, http.Header) (*websocket.Conn, *http.Response, error) {
	d.calls.Add(1)
	return nil, nil, errors.New("connection refused")
}

func TestCancelDuringBackoff(t *testing.T) {
	modes := gateway.NewModeTracker()
	modes.Set(gateway.ModeLive)

	d := &failingDialer{}
	l := New("ws://unused", modes, func(context.Context) {}, WithDialer(d), WithReconnectDelay(time.Hour))
	stop := runListener(t, l)

	require.Eventually(t, func() bool { return l.State() == StateBackoff }, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.ErrorIs(t, stop(), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "backoff", StateBackoff.String())
	assert.Equal(t, "disconnected", State(42).String())
}

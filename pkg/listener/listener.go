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

// Package listener keeps a websocket open to the backend's change channel
// while the dashboard is in live mode and re-triggers a refresh whenever the
// backend reports new data.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

const closeWait = time.Second

var errReconnectStopped = errors.New("reconnect policy stopped")

// State is the connection state of the listener.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	default:
		return "disconnected"
	}
}

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// ModeSource is the routing state the listener follows.
type ModeSource interface {
	IsDemo() bool
	Changed() <-chan struct{}
	SetChannelLive(live bool)
}

// Listener is the change-notification client.
type Listener struct {
	url      string
	header   http.Header
	dialer   Dialer
	modes    ModeSource
	onChange func(ctx context.Context)
	backoff  backoff.BackOff
	logger   logger.Logger

	mu        sync.RWMutex
	state     State
	stateHook func(State)
}

type Option func(*Listener)

func WithDialer(d Dialer) Option {
	return func(l *Listener) {
		l.dialer = d
	}
}

// WithReconnectDelay sets the fixed delay between reconnection attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(l *Listener) {
		l.backoff = backoff.NewConstantBackOff(d)
	}
}

func WithBackOff(b backoff.BackOff) Option {
	return func(l *Listener) {
		l.backoff = b
	}
}

func WithCredentials(username, password string) Option {
	return func(l *Listener) {
		req := http.Request{Header: http.Header{}}
		req.SetBasicAuth(username, password)
		l.header.Set("Authorization", req.Header.Get("Authorization"))
	}
}

func WithLogger(log logger.Logger) Option {
	return func(l *Listener) {
		l.logger = log
	}
}

// WithStateHook registers a callback invoked on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(l *Listener) {
		l.stateHook = fn
	}
}

// New returns a listener for url that calls onChange for every data update.
func New(url string, modes ModeSource, onChange func(ctx context.Context), opts ...Option) *Listener {
	l := &Listener{
		url:      url,
		header:   http.Header{},
		dialer:   websocket.DefaultDialer,
		modes:    modes,
		onChange: onChange,
		backoff:  backoff.NewConstantBackOff(models.DefaultReconnectDelay),
		logger:   logger.NewTestLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Listener) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	l.state = s
	hook := l.stateHook
	l.mu.Unlock()

	if hook != nil {
		hook(s)
	}
}

// Run connects whenever the mode is live and reconnects after the configured
// delay when the connection drops. After a drop in demo mode no reconnection
// is scheduled until the mode turns live again. Run returns when ctx is done;
// no timer or connection outlives it.
func (l *Listener) Run(ctx context.Context) error {
	defer l.setState(StateDisconnected)

	for {
		if err := l.waitLive(ctx); err != nil {
			return err
		}

		l.setState(StateConnecting)

		err := l.session(ctx)

		l.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if l.modes.IsDemo() {
			l.logger.Info().Err(err).Msg("Update channel closed in demo mode, not reconnecting")
			continue
		}

		delay := l.backoff.NextBackOff()

		l.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Update channel closed, scheduling reconnect")
		l.setState(StateBackoff)

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (l *Listener) waitLive(ctx context.Context) error {
	for {
		changed := l.modes.Changed()
		if !l.modes.IsDemo() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// session dials once and reads until the connection fails, the mode turns
// demo or ctx ends.
func (l *Listener) session(ctx context.Context) error {
	conn, resp, err := l.dialer.DialContext(ctx, l.url, l.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return err
	}

	l.backoff.Reset()
	l.setState(StateConnected)
	l.modes.SetChannelLive(true)
	l.logger.Info().Str("url", l.url).Msg("Update channel connected")

	defer l.modes.SetChannelLive(false)

	done := make(chan struct{})
	defer close(done)

	go l.closeWhenDemoOrDone(ctx, conn, done)

	defer func() { _ = conn.Close() }()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg models.DataUpdateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			l.logger.Debug().Err(err).Msg("Ignoring malformed update message")
			continue
		}

		if msg.Message != models.DataUpdated {
			continue
		}

		l.logger.Debug().Msg("Backend reported new data")
		l.onChange(ctx)
	}
}

// closeWhenDemoOrDone closes conn once ctx ends or the mode falls back to demo.
func (l *Listener) closeWhenDemoOrDone(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	for {
		changed := l.modes.Changed()
		if l.modes.IsDemo() {
			l.logger.Info().Msg("Mode switched to demo, closing update channel")
			closeConn(conn)

			return
		}

		select {
		case <-done:
			return
		case <-ctx.Done():
			closeConn(conn)
			return
		case <-changed:
		}
	}
}

func closeConn(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeWait))
	_ = conn.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d == backoff.Stop {
		return errReconnectStopped
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

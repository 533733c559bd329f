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

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carverauto/chemvis/pkg/auth"
	"github.com/carverauto/chemvis/pkg/dashboard"
	"github.com/carverauto/chemvis/pkg/gateway"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

var errOffline = errors.New("backend offline")

type offlineHTTP struct{}

func (offlineHTTP) Do(*http.Request) (*http.Response, error) {
	return nil, errOffline
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()

	cfg := &models.ClientConfig{SessionFile: filepath.Join(t.TempDir(), "session.json")}
	cfg.ApplyDefaults()
	cfg.ReportDir = t.TempDir()

	rt, err := NewRuntime(cfg, logger.NewTestLogger(), gateway.WithHTTPClient(offlineHTTP{}))
	require.NoError(t, err)

	return rt
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *CmdConfig)
		wantErr error
	}{
		{
			name: "default dashboard",
			args: nil,
			check: func(t *testing.T, cfg *CmdConfig) {
				assert.Equal(t, "dashboard", cfg.SubCmd)
				assert.Equal(t, defaultCost, cfg.Cost)
			},
		},
		{
			name: "config and upload argument",
			args: []string{"-config", "client.yaml", "upload", "plant.csv"},
			check: func(t *testing.T, cfg *CmdConfig) {
				assert.Equal(t, "client.yaml", cfg.ConfigFile)
				assert.Equal(t, "upload", cfg.SubCmd)
				assert.Equal(t, "plant.csv", cfg.File)
			},
		},
		{
			name: "report output dir",
			args: []string{"report", "-out", "/tmp/reports"},
			check: func(t *testing.T, cfg *CmdConfig) {
				assert.Equal(t, "/tmp/reports", cfg.OutputDir)
			},
		},
		{
			name: "logout",
			args: []string{"login", "-logout"},
			check: func(t *testing.T, cfg *CmdConfig) {
				assert.True(t, cfg.Logout)
			},
		},
		{
			name: "hash cost",
			args: []string{"hash", "-cost", "5", "secret"},
			check: func(t *testing.T, cfg *CmdConfig) {
				assert.Equal(t, 5, cfg.Cost)
				assert.Equal(t, []string{"secret"}, cfg.Args)
			},
		},
		{name: "upload without file", args: []string{"upload"}, wantErr: errUploadNeedsFile},
		{name: "hash cost out of range", args: []string{"hash", "-cost", "2"}, wantErr: errInvalidCost},
		{name: "unknown command", args: []string{"explode"}, wantErr: errUnknownCommand},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseFlags(tc.args, &bytes.Buffer{})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestGenerateBcryptNonInteractive(t *testing.T) {
	hash, err := generateBcryptNonInteractive("password123", minCost)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))

	_, err = generateBcryptNonInteractive("  ", minCost)
	require.ErrorIs(t, err, errEmptyPassword)

	_, err = generateBcryptNonInteractive("x", maxCost+1)
	require.ErrorIs(t, err, errInvalidCost)
}

func TestRunHashFromStdin(t *testing.T) {
	var out bytes.Buffer

	// Non-empty args bypass the interactive generator.
	err := RunHash(&CmdConfig{Cost: minCost, Args: []string{"s3cret"}}, strings.NewReader(""), &out)
	require.NoError(t, err)

	hash := strings.TrimSpace(out.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	password, err := readSecret(nil, strings.NewReader("from-stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", password)
}

func TestCommandsRequireLogin(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	require.ErrorIs(t, RunStatus(ctx, rt, &bytes.Buffer{}), errNotLoggedIn)
	require.ErrorIs(t, RunUpload(ctx, rt, "x.csv", &bytes.Buffer{}), errNotLoggedIn)
	require.ErrorIs(t, RunReport(ctx, rt, "", &bytes.Buffer{}), errNotLoggedIn)
}

func TestLoginStatusUploadReport(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	var out bytes.Buffer

	err := RunLogin(ctx, rt, &CmdConfig{Args: []string{"wrong"}}, strings.NewReader(""), &out)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, RunLogin(ctx, rt, &CmdConfig{Args: []string{models.DefaultPassword}}, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Logged in as admin.")

	out.Reset()
	require.NoError(t, RunStatus(ctx, rt, &out))
	assert.Contains(t, out.String(), "Mode: DEMO")
	assert.Contains(t, out.String(), "Total Equipment: 6")
	assert.Contains(t, out.String(), "sample_parameters.csv")

	csvPath := filepath.Join(t.TempDir(), "plant.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Name,Type,Flow,Pressure,Temp\nP-1,Pump,10,2,40\nP-2,Pump,20,4,60\n"), 0o600))

	out.Reset()
	require.NoError(t, RunUpload(ctx, rt, csvPath, &out))
	assert.Contains(t, out.String(), "(demo)")

	out.Reset()
	require.NoError(t, RunStatus(ctx, rt, &out))
	assert.Contains(t, out.String(), "Total Equipment: 2")
	assert.Contains(t, out.String(), "plant.csv")

	out.Reset()
	require.NoError(t, RunReport(ctx, rt, "", &out))
	assert.Contains(t, out.String(), "offline")

	entries, err := os.ReadDir(rt.Config.ReportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".txt"))

	out.Reset()
	require.NoError(t, RunLogin(ctx, rt, &CmdConfig{Logout: true}, strings.NewReader(""), &out))
	require.ErrorIs(t, RunStatus(ctx, rt, &bytes.Buffer{}), errNotLoggedIn)
}

func typeString(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	return m
}

func TestDashboardModelLoginFlow(t *testing.T) {
	rt := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := newDashboardModel(ctx, rt, false)
	require.Equal(t, screenLogin, m.screen)
	assert.Contains(t, m.View(), "Username:")

	typeString(m, "nope")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m.Update(cmd())
	require.ErrorIs(t, m.err, auth.ErrInvalidCredentials)
	assert.Equal(t, screenLogin, m.screen)

	typeString(m, models.DefaultPassword)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	_, next := m.Update(cmd())
	require.NoError(t, m.err)
	assert.Equal(t, screenDashboard, m.screen)
	require.NotNil(t, next)
	require.NotNil(t, m.session)

	sess, err := rt.Sessions.Load()
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
}

func TestDashboardModelRendersState(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Sessions.Save(&models.Session{Username: "admin"}))

	m := newDashboardModel(context.Background(), rt, false)
	require.Equal(t, screenDashboard, m.screen)

	m.Update(stateMsg(dashboard.State{
		Summary: models.SummaryStats{
			TotalEquipment:   2,
			AvgFlowrate:      15,
			TypeDistribution: map[string]int{"Pump": 2},
		},
		Equipment: []models.EquipmentItem{
			{ID: 2, EquipmentName: "P-2", EquipmentType: "Pump", Flowrate: 20},
			{ID: 1, EquipmentName: "P-1", EquipmentType: "Pump", Flowrate: 10},
		},
		Mode: gateway.ModeDemo,
	}))

	assert.Len(t, m.table.Rows(), 2)

	view := m.View()
	assert.Contains(t, view, "DEMO MODE")
	assert.Contains(t, view, "15.00 m3/h")
	assert.Contains(t, view, "Pump 2")

	m.Update(stateMsg(dashboard.State{Mode: gateway.ModeLive, ChannelLive: true}))
	assert.Contains(t, m.View(), "LIVE")
	assert.Contains(t, m.View(), "updates: on")
	assert.Empty(t, m.table.Rows())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	require.NotNil(t, cmd)
	assert.Equal(t, screenUpload, m.screen)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenDashboard, m.screen)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	assert.Equal(t, screenLogin, m.screen)

	_, err := rt.Sessions.Load()
	require.ErrorIs(t, err, auth.ErrNoSession)
}

func TestRunDashboardQuits(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.Sessions.Save(&models.Session{Username: "admin"}))

	err := runDashboard(context.Background(), rt,
		tea.WithInput(strings.NewReader("q")),
		tea.WithOutput(io.Discard),
	)
	require.NoError(t, err)
}

func TestRunDashboardStopsWithContext(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.Sessions.Save(&models.Session{Username: "admin"}))

	in, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- runDashboard(ctx, rt, tea.WithInput(in), tea.WithOutput(io.Discard))
	}()

	require.Eventually(t, func() bool {
		st := rt.Controller.State()
		return !st.UpdatedAt.IsZero() && st.Summary.TotalEquipment == 6
	}, 3*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("dashboard did not stop")
	}
}

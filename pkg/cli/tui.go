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
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/chemvis/pkg/auth"
	"github.com/carverauto/chemvis/pkg/dashboard"
	"github.com/carverauto/chemvis/pkg/gateway"
	"github.com/carverauto/chemvis/pkg/models"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
	screenUpload
)

const (
	focusUsername = 0
	focusPassword = 1
	tableHeight   = 10
	maxRecent     = 5
)

type (
	stateMsg dashboard.State
	loginMsg struct {
		session *models.Session
		err     error
	}
	uploadMsg struct {
		result models.UploadResult
		err    error
	}
	exportMsg struct {
		path   string
		report models.Report
		err    error
	}
	runDoneMsg struct{ err error }
)

type dashboardModel struct {
	ctx       context.Context
	rt        *Runtime
	loginOnly bool
	started   bool

	screen   screen
	session  *models.Session
	state    dashboard.State
	updates  <-chan dashboard.State
	username textinput.Model
	password textinput.Model
	focus    int
	path     textinput.Model
	table    table.Model
	spinner  spinner.Model
	busy     bool
	status   string
	err      error
	canCopy  bool
	styles   styles
}

func newDashboardModel(ctx context.Context, rt *Runtime, loginOnly bool) *dashboardModel {
	user := newInput("admin", 30)
	user.SetValue(rt.Config.Username)

	pass := newPasswordInput("password")
	pass.Focus()

	path := newInput("path/to/equipment.csv", 50)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPink))

	m := &dashboardModel{
		ctx:       ctx,
		rt:        rt,
		loginOnly: loginOnly,
		screen:    screenLogin,
		username:  user,
		password:  pass,
		focus:     focusPassword,
		path:      path,
		table:     newEquipmentTable(),
		spinner:   sp,
		canCopy:   clipboardAvailable(),
		styles:    newStyles(),
	}

	if !loginOnly {
		if sess, err := rt.Sessions.Load(); err == nil {
			m.session = sess
			m.screen = screenDashboard
		}
	}

	return m
}

// RunDashboard runs the interactive dashboard until the user quits or ctx ends.
// The controller and update listener run for the life of the program.
func RunDashboard(ctx context.Context, rt *Runtime) error {
	return runDashboard(ctx, rt, tea.WithAltScreen())
}

func runDashboard(ctx context.Context, rt *Runtime, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newDashboardModel(ctx, rt, false)

	_, err := tea.NewProgram(m, append(opts, tea.WithContext(ctx))...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}

func newEquipmentTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 14},
			{Title: "Equipment", Width: 20},
			{Title: "Type", Width: 22},
			{Title: "Flow m3/h", Width: 10},
			{Title: "Bar", Width: 6},
			{Title: "Temp C", Width: 7},
		}),
		table.WithHeight(tableHeight),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaPurple)).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(draculaForeground)).
		Background(lipgloss.Color(draculaComment))
	t.SetStyles(s)

	return t
}

func equipmentRows(items []models.EquipmentItem) []table.Row {
	rows := make([]table.Row, 0, len(items))

	for _, it := range items {
		rows = append(rows, table.Row{
			strconv.FormatInt(it.ID, 10),
			it.EquipmentName,
			it.EquipmentType,
			strconv.FormatFloat(it.Flowrate, 'f', -1, 64),
			strconv.FormatFloat(it.Pressure, 'f', -1, 64),
			strconv.FormatFloat(it.Temperature, 'f', -1, 64),
		})
	}

	return rows
}

func (m *dashboardModel) Init() tea.Cmd {
	if m.screen == screenDashboard {
		return m.startDashboard()
	}

	return textinput.Blink
}

// startDashboard subscribes to the controller and runs it in the background.
func (m *dashboardModel) startDashboard() tea.Cmd {
	if m.started {
		return nil
	}

	m.started = true
	m.busy = true
	m.updates = m.rt.Controller.Subscribe()

	run := func() tea.Msg {
		return runDoneMsg{err: m.rt.Controller.Run(m.ctx, m.rt.Listener)}
	}

	return tea.Batch(m.spinner.Tick, waitForState(m.updates), run)
}

func waitForState(ch <-chan dashboard.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}

		return stateMsg(st)
	}
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenUpload:
			return m.updateUpload(msg)
		default:
			return m.updateDashboard(msg)
		}
	case loginMsg:
		return m.handleLogin(msg)
	case stateMsg:
		m.state = dashboard.State(msg)
		m.busy = m.state.Loading
		m.table.SetRows(equipmentRows(m.state.Equipment))

		return m, waitForState(m.updates)
	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""

			return m, nil
		}

		m.err = nil
		m.status = msg.result.Message

		return m, nil
	case exportMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.status = "Report saved to " + msg.path

		if m.canCopy {
			m.status += " · " + copyToClipboard(msg.path, "Path")
		}

		return m, nil
	case runDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}

		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m *dashboardModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case forwards all other keys to the focused input
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.toggleLoginFocus()
		return m, textinput.Blink
	case tea.KeyEnter:
		if m.focus == focusUsername {
			m.toggleLoginFocus()
			return m, textinput.Blink
		}

		return m, m.submitLogin()
	}

	var cmd tea.Cmd
	if m.focus == focusUsername {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}

	return m, cmd
}

func (m *dashboardModel) toggleLoginFocus() {
	if m.focus == focusUsername {
		m.focus = focusPassword
		m.username.Blur()
		m.password.Focus()

		return
	}

	m.focus = focusUsername
	m.password.Blur()
	m.username.Focus()
}

func (m *dashboardModel) submitLogin() tea.Cmd {
	username := strings.TrimSpace(m.username.Value())
	password := m.password.Value()

	switch {
	case username == "":
		m.err = auth.ErrUsernameRequired
		return nil
	case strings.TrimSpace(password) == "":
		m.err = auth.ErrPasswordRequired
		return nil
	}

	m.busy = true

	return func() tea.Msg {
		sess, err := login(m.ctx, m.rt, username, password)
		return loginMsg{session: sess, err: err}
	}
}

func (m *dashboardModel) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.password.SetValue("")

	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}

	m.err = nil
	m.session = msg.session

	if m.loginOnly {
		return m, tea.Quit
	}

	m.screen = screenDashboard

	return m, m.startDashboard()
}

func (m *dashboardModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		m.busy = true
		m.status = ""

		return m, func() tea.Msg {
			m.rt.Controller.Refresh(m.ctx)
			return nil
		}
	case "u":
		m.screen = screenUpload
		m.path.SetValue("")
		m.path.Focus()

		return m, textinput.Blink
	case "e":
		m.busy = true
		m.status = ""

		return m, func() tea.Msg {
			path, rep, err := m.rt.Controller.ExportReport(m.ctx, m.rt.Config.ReportDir)
			return exportMsg{path: path, report: rep, err: err}
		}
	case "l":
		if err := m.rt.Sessions.Clear(); err != nil {
			m.err = err
			return m, nil
		}

		m.session = nil
		m.screen = screenLogin
		m.focus = focusUsername
		m.toggleLoginFocus()
		m.status = "Logged out."

		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *dashboardModel) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case forwards all other keys to the path input
	switch msg.Type {
	case tea.KeyEsc:
		m.screen = screenDashboard
		m.path.Blur()

		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.path.Value())
		if path == "" {
			m.err = errUploadNeedsFile
			return m, nil
		}

		m.screen = screenDashboard
		m.path.Blur()
		m.busy = true

		return m, func() tea.Msg {
			res, err := m.rt.Controller.Upload(m.ctx, path)
			return uploadMsg{result: res, err: err}
		}
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)

	return m, cmd
}

func (m *dashboardModel) View() string {
	var b strings.Builder

	s := m.styles

	b.WriteString(s.focused.Render("CHEMVIS PRO · Industrial Analytics") + "\n\n")

	switch m.screen {
	case screenLogin:
		b.WriteString(m.viewLogin())
	case screenUpload:
		b.WriteString(m.viewDashboard())
		b.WriteString("\n\n" + lipgloss.JoinVertical(lipgloss.Left, s.focused2.Render("CSV file:"), m.path.View()))
		b.WriteString("\n" + s.help.Render("Enter → upload | Esc → cancel"))
	default:
		b.WriteString(m.viewDashboard())
	}

	if m.status != "" {
		b.WriteString("\n\n" + messageStyle(s, m.status).Render(m.status))
	}

	if m.err != nil {
		b.WriteString("\n\n" + s.error.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return s.app.Render(b.String())
}

func (m *dashboardModel) viewLogin() string {
	s := m.styles

	parts := []string{
		s.focused2.Render("Username:"),
		m.username.View(),
		"",
		s.focused2.Render("Password:"),
		m.password.View(),
		"",
	}

	if m.busy {
		parts = append(parts, m.spinner.View()+" Signing in…")
	}

	parts = append(parts, s.help.Render("Enter → sign in | Tab → switch field | Esc → quit"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *dashboardModel) viewDashboard() string {
	s := m.styles
	st := m.state

	badge := s.demo.Render("DEMO MODE")
	if st.Mode == gateway.ModeLive {
		badge = s.live.Render("LIVE")
	}

	channel := s.label.Render("updates: off")
	if st.ChannelLive {
		channel = s.success.Render("updates: on")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", channel)
	if m.session != nil {
		header = lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", s.label.Render("user: "+m.session.Username))
	}

	if m.busy {
		header = lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", m.spinner.View())
	}

	card := func(label, value string) string {
		return s.card.Render(lipgloss.JoinVertical(lipgloss.Left, s.label.Render(label), s.value.Render(value)))
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Equipment", strconv.Itoa(st.Summary.TotalEquipment)),
		card("Avg Flowrate", fmt.Sprintf("%.2f m3/h", st.Summary.AvgFlowrate)),
		card("Avg Pressure", fmt.Sprintf("%.2f Bar", st.Summary.AvgPressure)),
		card("Avg Temperature", fmt.Sprintf("%.2f C", st.Summary.AvgTemperature)),
	)

	var dist []string
	for _, tc := range sortedTypes(st.Summary.TypeDistribution) {
		dist = append(dist, fmt.Sprintf("%s %d", tc.name, tc.count))
	}

	var recent []string
	for i, h := range st.History {
		if i == maxRecent {
			break
		}

		recent = append(recent, fmt.Sprintf("%s · %d items · %s",
			h.Filename, h.ItemCount, h.UploadDate.Local().Format(time.DateTime)))
	}

	parts := []string{
		header,
		"",
		cards,
		"",
		s.focused2.Render("Type Distribution: ") + strings.Join(dist, " | "),
		"",
		m.table.View(),
		"",
		s.focused2.Render("Recent Uploads"),
		strings.Join(recent, "\n"),
		"",
		s.help.Render("r → refresh | u → upload CSV | e → export report | l → logout | q → quit"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
